package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mixclub/music-league/middleware"
	"github.com/mixclub/music-league/services"
)

type SubmissionHandler struct {
	submissionService services.SubmissionService
	roundService      services.RoundService
	logger            *slog.Logger
}

func NewSubmissionHandler(
	submissionService services.SubmissionService,
	roundService services.RoundService,
	logger *slog.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		roundService:      roundService,
		logger:            logger,
	}
}

func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.CreateSubmissionInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.RoundID == 0 || len(input.Songs) == 0 {
		badRequestResponse(w, r, errors.New("round_id and songs are required"))
		return
	}
	for _, song := range input.Songs {
		if song.Title == "" || song.ArtistName == "" || song.SonglinkURL == "" {
			badRequestResponse(w, r, errors.New("each song requires song_title, artist_name and songlink_url"))
			return
		}
	}

	submission, err := h.submissionService.CreateSubmission(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Заявка принята: если сдали все участники, раунд сам переходит к
	// голосованию. Ошибки проверки не влияют на ответ клиенту.
	complete, err := h.roundService.SubmissionComplete(r.Context(), input.RoundID)
	if err != nil {
		h.logger.Warn("submission coverage check failed", "round_id", input.RoundID, "error", err)
	} else if complete {
		if _, err := h.roundService.ProgressToVoting(r.Context(), input.RoundID); err != nil {
			h.logger.Warn("auto progress to voting failed", "round_id", input.RoundID, "error", err)
		}
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) MySubmission(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	roundID, err := urlParamInt(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	submission, err := h.submissionService.GetUserSubmission(r.Context(), roundID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"submission": submission}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *SubmissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}
	submissionID, err := urlParamInt(r, "submissionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.submissionService.DeleteSubmission(r.Context(), submissionID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
