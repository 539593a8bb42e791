package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
)

type userStoreStub struct {
	rec        pgrepo.UserRecord
	getErr     error
	resetCalls int
	resetErr   error
}

func (s *userStoreStub) EnsureByTelegramID(_ context.Context, telegramID int64) (pgrepo.UserRecord, error) {
	if s.getErr != nil {
		return pgrepo.UserRecord{}, s.getErr
	}
	s.rec.TelegramID = telegramID
	return s.rec, nil
}

func (s *userStoreStub) GetByTelegramID(_ context.Context, telegramID int64) (pgrepo.UserRecord, error) {
	if s.getErr != nil {
		return pgrepo.UserRecord{}, s.getErr
	}
	s.rec.TelegramID = telegramID
	return s.rec, nil
}

func (s *userStoreStub) ResetExpiredLessons(_ context.Context, _ string, _ time.Time) (bool, error) {
	if s.resetErr != nil {
		return false, s.resetErr
	}
	s.resetCalls++
	s.rec.LessonsLeft = 0
	return true, nil
}

func (s *userStoreStub) ConsumeLesson(_ context.Context, _ string) (int, error) {
	if s.rec.LessonsLeft > 0 {
		s.rec.LessonsLeft--
	}
	s.rec.TotalLessonsCompleted++
	return s.rec.LessonsLeft, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestService(stub *userStoreStub) *Service {
	svc := NewService(stub, nil)
	svc.now = fixedNow
	return svc
}

func TestHasAccessAudioBoundary(t *testing.T) {
	future := fixedNow().Add(time.Second)
	stub := &userStoreStub{rec: pgrepo.UserRecord{ID: "u-1", LessonsLeft: 1, PackageExpiresAt: &future}}
	svc := newTestService(stub)

	if !svc.HasAccess(context.Background(), 42, enums.CapabilityAudio) {
		t.Fatalf("audio access expected one second before expiry")
	}

	past := fixedNow().Add(-time.Second)
	stub.rec.PackageExpiresAt = &past
	if svc.HasAccess(context.Background(), 42, enums.CapabilityAudio) {
		t.Fatalf("audio access must be denied one second after expiry")
	}
}

func TestHasAccessDegradesToDenyOnStoreError(t *testing.T) {
	stub := &userStoreStub{getErr: errors.New("datastore unreachable")}
	svc := newTestService(stub)

	if svc.HasAccess(context.Background(), 42, enums.CapabilityText) {
		t.Fatalf("store failure must degrade to deny, never error the turn")
	}
}

func TestProfileResetsLapsedCredits(t *testing.T) {
	past := fixedNow().Add(-time.Hour)
	stub := &userStoreStub{rec: pgrepo.UserRecord{ID: "u-1", LessonsLeft: 5, PackageExpiresAt: &past}}
	svc := newTestService(stub)

	profile, err := svc.Profile(context.Background(), 42)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if stub.resetCalls != 1 {
		t.Fatalf("expected one reset call, got %d", stub.resetCalls)
	}
	if profile.LessonsLeft != 0 {
		t.Fatalf("lapsed package must not retain spendable credit: %d", profile.LessonsLeft)
	}
	if profile.AudioAccess || profile.TextAccess {
		t.Fatalf("lapsed package must deny access: %+v", profile)
	}
}

func TestProfileKeepsCreditsWhileActive(t *testing.T) {
	future := fixedNow().Add(time.Hour)
	stub := &userStoreStub{rec: pgrepo.UserRecord{ID: "u-1", LessonsLeft: 5, PackageExpiresAt: &future}}
	svc := newTestService(stub)

	profile, err := svc.Profile(context.Background(), 42)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if stub.resetCalls != 0 {
		t.Fatalf("active package must not trigger a reset")
	}
	if profile.LessonsLeft != 5 || !profile.AudioAccess || !profile.TextAccess {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestProfileSurvivesResetFailure(t *testing.T) {
	past := fixedNow().Add(-time.Hour)
	stub := &userStoreStub{
		rec:      pgrepo.UserRecord{ID: "u-1", LessonsLeft: 5, PackageExpiresAt: &past},
		resetErr: errors.New("datastore unreachable"),
	}
	svc := newTestService(stub)

	if _, err := svc.Profile(context.Background(), 42); err != nil {
		t.Fatalf("reset failure must not fail the profile read: %v", err)
	}
}

func TestCompleteLessonDecrements(t *testing.T) {
	future := fixedNow().Add(time.Hour)
	stub := &userStoreStub{rec: pgrepo.UserRecord{ID: "u-1", LessonsLeft: 2, PackageExpiresAt: &future}}
	svc := newTestService(stub)

	left, err := svc.CompleteLesson(context.Background(), 42)
	if err != nil {
		t.Fatalf("complete lesson: %v", err)
	}
	if left != 1 {
		t.Fatalf("unexpected balance: got %d want 1", left)
	}
}
