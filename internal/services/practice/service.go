package practice

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

var (
	ErrValidation  = errors.New("validation error")
	ErrNoAccess    = errors.New("no access")
	ErrRateLimited = errors.New("rate limited")
)

type UserStore interface {
	EnsureByTelegramID(ctx context.Context, telegramID int64) (pgrepo.UserRecord, error)
	SetStreak(ctx context.Context, userID string, streak int, day time.Time) error
}

type AccessGate interface {
	HasAccess(ctx context.Context, telegramID int64, kind enums.Capability) bool
}

type TurnLimiter interface {
	AllowTurn(ctx context.Context, telegramID int64) (int64, bool, error)
}

type Completer interface {
	Complete(ctx context.Context, mode enums.DialogMode, message string) (string, error)
}

type Service struct {
	users     UserStore
	access    AccessGate
	limiter   TurnLimiter
	completer Completer
	logger    *zap.Logger
	now       func() time.Time
}

type Dependencies struct {
	Users     UserStore
	Access    AccessGate
	Limiter   TurnLimiter
	Completer Completer
	Logger    *zap.Logger
}

// CheckInResult reports the streak after a practice event.
type CheckInResult struct {
	Streak  int
	Updated bool
}

// TurnResult is one completed conversation turn.
type TurnResult struct {
	Reply         string
	Streak        int
	RetryAfterSec int64
}

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		users:     deps.Users,
		access:    deps.Access,
		limiter:   deps.Limiter,
		completer: deps.Completer,
		logger:    log,
		now:       time.Now,
	}
}

// CheckIn advances the daily practice streak. It is shared by every practice
// path and degrades to a safe streak of 1 instead of failing the
// conversation turn on store errors.
func (s *Service) CheckIn(ctx context.Context, telegramID int64) (CheckInResult, error) {
	if telegramID <= 0 {
		return CheckInResult{}, ErrValidation
	}
	if s.users == nil {
		return CheckInResult{}, fmt.Errorf("user store is nil")
	}

	today := s.now().UTC()

	rec, err := s.users.EnsureByTelegramID(ctx, telegramID)
	if err != nil {
		s.logger.Warn("streak check-in degraded", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return CheckInResult{Streak: 1, Updated: false}, nil
	}

	res := rules.UpdateStreak(rec.CurrentStreak, rec.LastPracticeDate, today)
	if !res.Persist {
		return CheckInResult{Streak: res.Streak, Updated: false}, nil
	}

	if err := s.users.SetStreak(ctx, rec.ID, res.Streak, today); err != nil {
		s.logger.Warn("streak persist failed", zap.String("user_id", rec.ID), zap.Error(err))
		return CheckInResult{Streak: res.Streak, Updated: false}, nil
	}

	return CheckInResult{Streak: res.Streak, Updated: true}, nil
}

// Turn runs one conversation exchange: access gate, rate limit, completion,
// then a streak check-in for the day.
func (s *Service) Turn(ctx context.Context, telegramID int64, mode enums.DialogMode, message string) (TurnResult, error) {
	if telegramID <= 0 || message == "" {
		return TurnResult{}, ErrValidation
	}
	if s.completer == nil {
		return TurnResult{}, fmt.Errorf("completer is nil")
	}

	capability := enums.CapabilityText
	if mode == enums.ModeAudioFeedback {
		capability = enums.CapabilityAudio
	}
	if s.access != nil && !s.access.HasAccess(ctx, telegramID, capability) {
		return TurnResult{}, ErrNoAccess
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.AllowTurn(ctx, telegramID)
		if err != nil {
			s.logger.Warn("turn limiter degraded to allow", zap.Int64("telegram_id", telegramID), zap.Error(err))
		} else if !allowed {
			return TurnResult{RetryAfterSec: retryAfter}, ErrRateLimited
		}
	}

	reply, err := s.completer.Complete(ctx, mode, message)
	if err != nil {
		return TurnResult{}, fmt.Errorf("completion turn: %w", err)
	}

	checkIn, err := s.CheckIn(ctx, telegramID)
	if err != nil {
		// CheckIn already degrades internally; only validation errors land here.
		return TurnResult{Reply: reply, Streak: 1}, nil
	}

	return TurnResult{Reply: reply, Streak: checkIn.Streak}, nil
}
