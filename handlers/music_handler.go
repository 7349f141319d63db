package handlers

import (
	"errors"
	"net/http"

	"github.com/mixclub/music-league/services"
)

type MusicHandler struct {
	musicService services.MusicService
}

func NewMusicHandler(musicService services.MusicService) *MusicHandler {
	return &MusicHandler{musicService: musicService}
}

// Search ищет трек по артисту и названию: GET /music/search?artist=&title=&album=
func (h *MusicHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	artist := query.Get("artist")
	title := query.Get("title")
	if artist == "" || title == "" {
		badRequestResponse(w, r, errors.New("artist and title query parameters are required"))
		return
	}

	var album *string
	if a := query.Get("album"); a != "" {
		album = &a
	}

	result, err := h.musicService.SearchSong(r.Context(), artist, title, album)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Lookup резолвит прямую ссылку платформы: GET /music/lookup?url=
func (h *MusicHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		badRequestResponse(w, r, errors.New("url query parameter is required"))
		return
	}

	result, err := h.musicService.GetSongByURL(r.Context(), url)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"result": result}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
