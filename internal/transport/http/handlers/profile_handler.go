package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	entsvc "github.com/AndreyF1/LinguaPulse/internal/services/entitlements"
	practicesvc "github.com/AndreyF1/LinguaPulse/internal/services/practice"
	"github.com/AndreyF1/LinguaPulse/internal/transport/http/dto"
	httperrors "github.com/AndreyF1/LinguaPulse/internal/transport/http/errors"
)

type ProfileHandler struct {
	entitlements *entsvc.Service
	practice     *practicesvc.Service
}

func NewProfileHandler(entitlements *entsvc.Service, practice *practicesvc.Service) *ProfileHandler {
	return &ProfileHandler{entitlements: entitlements, practice: practice}
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	telegramID, err := strconv.ParseInt(chi.URLParam(r, "telegram_id"), 10, 64)
	if err != nil || telegramID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid telegram id")
		return
	}

	profile, err := h.entitlements.Profile(r.Context(), telegramID)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid profile request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProfileResponse{
		UserID:                profile.UserID,
		TelegramID:            profile.TelegramID,
		LessonsLeft:           profile.LessonsLeft,
		PackageExpiresAt:      profile.PackageExpiresAt,
		CurrentStreak:         profile.CurrentStreak,
		LastPracticeDate:      profile.LastPracticeDate,
		TotalLessonsCompleted: profile.TotalLessonsCompleted,
		InterfaceLanguage:     profile.InterfaceLanguage,
		AudioAccess:           profile.AudioAccess,
		TextAccess:            profile.TextAccess,
	})
}

// CompleteLesson spends one audio credit and advances the streak, so a
// finished audio session counts as the day's practice.
func (h *ProfileHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	if h.entitlements == nil {
		writeInternal(w, "ENTITLEMENTS_SERVICE_UNAVAILABLE", "entitlements service is unavailable")
		return
	}

	var req dto.LessonCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	left, err := h.entitlements.CompleteLesson(r.Context(), req.TelegramID)
	if err != nil {
		switch {
		case errors.Is(err, entsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid lesson complete payload")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to complete lesson")
		}
		return
	}

	streak := 0
	if h.practice != nil {
		if checkIn, err := h.practice.CheckIn(r.Context(), req.TelegramID); err == nil {
			streak = checkIn.Streak
		}
	}

	httperrors.Write(w, http.StatusOK, dto.LessonCompleteResponse{
		LessonsLeft: left,
		Streak:      streak,
	})
}
