package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
	"github.com/AndreyF1/LinguaPulse/internal/domain/rules"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

type UserStore interface {
	EnsureByTelegramID(ctx context.Context, telegramID int64) (pgrepo.UserRecord, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (pgrepo.UserRecord, error)
	ResetExpiredLessons(ctx context.Context, userID string, now time.Time) (bool, error)
	ConsumeLesson(ctx context.Context, userID string) (int, error)
}

type Service struct {
	store  UserStore
	logger *zap.Logger
	now    func() time.Time
}

// Profile is the entitlement view of one user.
type Profile struct {
	UserID                string
	TelegramID            int64
	LessonsLeft           int
	PackageExpiresAt      *time.Time
	CurrentStreak         int
	LastPracticeDate      *time.Time
	TotalLessonsCompleted int
	InterfaceLanguage     string
	AudioAccess           bool
	TextAccess            bool
}

func NewService(store UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// HasAccess is the conversational gate. It degrades to "no access" on store
// failure instead of erroring the turn.
func (s *Service) HasAccess(ctx context.Context, telegramID int64, kind enums.Capability) bool {
	if telegramID <= 0 || s.store == nil {
		return false
	}

	rec, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if !errors.Is(err, pgrepo.ErrUserNotFound) {
			s.logger.Warn("access check degraded to deny", zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
		return false
	}

	return rules.HasAccess(kind, rec.LessonsLeft, rec.PackageExpiresAt, s.now().UTC())
}

// Profile returns the entitlement snapshot for a profile view. A lapsed
// package zeroes any remaining credits, persisted as a server-side
// conditional update so a concurrent grant wins over the stale snapshot.
func (s *Service) Profile(ctx context.Context, telegramID int64) (Profile, error) {
	if telegramID <= 0 {
		return Profile{}, ErrValidation
	}
	if s.store == nil {
		return Profile{}, fmt.Errorf("user store is nil")
	}

	rec, err := s.store.EnsureByTelegramID(ctx, telegramID)
	if err != nil {
		return Profile{}, err
	}

	now := s.now().UTC()
	if rules.PackageLapsed(rec.PackageExpiresAt, now) && rec.LessonsLeft > 0 {
		reset, err := s.store.ResetExpiredLessons(ctx, rec.ID, now)
		if err != nil {
			s.logger.Warn("expired lessons reset failed", zap.String("user_id", rec.ID), zap.Error(err))
		} else if reset {
			rec.LessonsLeft = 0
		}
	}

	return Profile{
		UserID:                rec.ID,
		TelegramID:            rec.TelegramID,
		LessonsLeft:           rec.LessonsLeft,
		PackageExpiresAt:      rec.PackageExpiresAt,
		CurrentStreak:         rec.CurrentStreak,
		LastPracticeDate:      rec.LastPracticeDate,
		TotalLessonsCompleted: rec.TotalLessonsCompleted,
		InterfaceLanguage:     rec.InterfaceLanguage,
		AudioAccess:           rules.HasAccess(enums.CapabilityAudio, rec.LessonsLeft, rec.PackageExpiresAt, now),
		TextAccess:            rules.HasAccess(enums.CapabilityText, rec.LessonsLeft, rec.PackageExpiresAt, now),
	}, nil
}

// CompleteLesson spends one audio-lesson credit. The decrement is clamped at
// zero server-side.
func (s *Service) CompleteLesson(ctx context.Context, telegramID int64) (int, error) {
	if telegramID <= 0 {
		return 0, ErrValidation
	}
	if s.store == nil {
		return 0, fmt.Errorf("user store is nil")
	}

	rec, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return 0, err
	}

	left, err := s.store.ConsumeLesson(ctx, rec.ID)
	if err != nil {
		return 0, fmt.Errorf("consume lesson: %w", err)
	}
	return left, nil
}
