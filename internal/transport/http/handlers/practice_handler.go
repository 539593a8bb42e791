package handlers

import (
	"errors"
	"net/http"

	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
	practicesvc "github.com/AndreyF1/LinguaPulse/internal/services/practice"
	"github.com/AndreyF1/LinguaPulse/internal/transport/http/dto"
	httperrors "github.com/AndreyF1/LinguaPulse/internal/transport/http/errors"
)

type PracticeHandler struct {
	practice *practicesvc.Service
}

func NewPracticeHandler(practice *practicesvc.Service) *PracticeHandler {
	return &PracticeHandler{practice: practice}
}

func (h *PracticeHandler) Turn(w http.ResponseWriter, r *http.Request) {
	if h.practice == nil {
		writeInternal(w, "PRACTICE_SERVICE_UNAVAILABLE", "practice service is unavailable")
		return
	}

	var req dto.PracticeTurnRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	mode, err := enums.ParseDialogMode(req.Mode)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "unknown dialog mode")
		return
	}

	result, err := h.practice.Turn(r.Context(), req.TelegramID, mode, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, practicesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid practice turn payload")
		case errors.Is(err, practicesvc.ErrNoAccess):
			writeForbidden(w, "NO_ACCESS", "no active package for this mode")
		case errors.Is(err, practicesvc.ErrRateLimited):
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many turns, slow down",
				RetryAfterSec: result.RetryAfterSec,
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to run practice turn")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PracticeTurnResponse{
		Reply:  result.Reply,
		Streak: result.Streak,
	})
}

func (h *PracticeHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	if h.practice == nil {
		writeInternal(w, "PRACTICE_SERVICE_UNAVAILABLE", "practice service is unavailable")
		return
	}

	var req dto.CheckInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.practice.CheckIn(r.Context(), req.TelegramID)
	if err != nil {
		switch {
		case errors.Is(err, practicesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid check-in payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to run check-in")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CheckInResponse{
		Streak:  result.Streak,
		Updated: result.Updated,
	})
}
