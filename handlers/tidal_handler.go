package handlers

import (
	"errors"
	"net/http"

	"github.com/mixclub/music-league/middleware"
	"github.com/mixclub/music-league/services"
)

type TidalHandler struct {
	playlistService services.PlaylistService
}

func NewTidalHandler(playlistService services.PlaylistService) *TidalHandler {
	return &TidalHandler{playlistService: playlistService}
}

func (h *TidalHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	status, err := h.playlistService.GetTidalStatus(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, status, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TidalHandler) AuthStart(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	auth, err := h.playlistService.StartTidalAuth(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, auth, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TidalHandler) AuthPoll(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		DeviceCode string `json:"device_code"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.DeviceCode == "" {
		badRequestResponse(w, r, errors.New("device_code is required"))
		return
	}

	err = h.playlistService.CompleteTidalAuth(r.Context(), userID, input.DeviceCode)
	if err != nil {
		// Незавершенная авторизация — штатный ответ при опросе, не ошибка.
		if errors.Is(err, services.ErrTidalAuthPending) {
			response := jsonResponse{
				"success": false,
				"message": "Authorization not yet complete. Please complete authorization in your browser.",
			}
			if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
				serverErrorResponse(w, r, err)
			}
			return
		}
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"success": true,
		"message": "Successfully connected to Tidal!",
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TidalHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	if err := h.playlistService.DisconnectTidal(r.Context(), userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TidalHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input struct {
		RoundID int `json:"round_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.RoundID == 0 {
		badRequestResponse(w, r, errors.New("round_id is required"))
		return
	}

	result, err := h.playlistService.CreateRoundPlaylist(r.Context(), userID, input.RoundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
