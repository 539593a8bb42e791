package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
	practicesvc "github.com/AndreyF1/LinguaPulse/internal/services/practice"
)

type practiceUserStub struct {
	rec pgrepo.UserRecord
}

func (s *practiceUserStub) EnsureByTelegramID(_ context.Context, telegramID int64) (pgrepo.UserRecord, error) {
	s.rec.TelegramID = telegramID
	return s.rec, nil
}

func (s *practiceUserStub) SetStreak(_ context.Context, _ string, streak int, day time.Time) error {
	s.rec.CurrentStreak = streak
	d := day
	s.rec.LastPracticeDate = &d
	return nil
}

type practiceAccessStub struct{ allow bool }

func (a *practiceAccessStub) HasAccess(context.Context, int64, enums.Capability) bool {
	return a.allow
}

type practiceLimiterStub struct {
	allowed    bool
	retryAfter int64
}

func (l *practiceLimiterStub) AllowTurn(context.Context, int64) (int64, bool, error) {
	return l.retryAfter, l.allowed, nil
}

type practiceCompleterStub struct{ reply string }

func (c *practiceCompleterStub) Complete(context.Context, enums.DialogMode, string) (string, error) {
	return c.reply, nil
}

func newPracticeHandler(allow, limiterAllow bool, retryAfter int64) *PracticeHandler {
	svc := practicesvc.NewService(practicesvc.Dependencies{
		Users:     &practiceUserStub{rec: pgrepo.UserRecord{ID: "u-1"}},
		Access:    &practiceAccessStub{allow: allow},
		Limiter:   &practiceLimiterStub{allowed: limiterAllow, retryAfter: retryAfter},
		Completer: &practiceCompleterStub{reply: "Nice sentence!"},
	})
	return NewPracticeHandler(svc)
}

func postJSON(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestPracticeTurnSuccess(t *testing.T) {
	h := newPracticeHandler(true, true, 0)

	rr := postJSON(h.Turn, "/practice/turn", `{"telegram_id":42,"mode":"grammar","message":"I has a cat"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %q", rr.Code, rr.Body.String())
	}

	var resp struct {
		Reply  string `json:"reply"`
		Streak int    `json:"streak"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "Nice sentence!" {
		t.Fatalf("unexpected reply: %q", resp.Reply)
	}
	if resp.Streak != 1 {
		t.Fatalf("first practice of the day must report streak 1, got %d", resp.Streak)
	}
}

func TestPracticeTurnUnknownMode(t *testing.T) {
	h := newPracticeHandler(true, true, 0)

	rr := postJSON(h.Turn, "/practice/turn", `{"telegram_id":42,"mode":"karaoke","message":"hi"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d", rr.Code)
	}
}

func TestPracticeTurnNoAccess(t *testing.T) {
	h := newPracticeHandler(false, true, 0)

	rr := postJSON(h.Turn, "/practice/turn", `{"telegram_id":42,"mode":"text_dialog","message":"hi"}`)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d", rr.Code)
	}
}

func TestPracticeTurnRateLimited(t *testing.T) {
	h := newPracticeHandler(true, false, 25)

	rr := postJSON(h.Turn, "/practice/turn", `{"telegram_id":42,"mode":"text_dialog","message":"hi"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected status: got %d", rr.Code)
	}

	var resp struct {
		RetryAfterSec int64 `json:"retry_after_sec"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RetryAfterSec != 25 {
		t.Fatalf("unexpected retry_after_sec: %d", resp.RetryAfterSec)
	}
}

func TestPracticeCheckIn(t *testing.T) {
	h := newPracticeHandler(true, true, 0)

	rr := postJSON(h.CheckIn, "/practice/checkin", `{"telegram_id":42}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body %q", rr.Code, rr.Body.String())
	}

	var resp struct {
		Streak  int  `json:"streak"`
		Updated bool `json:"updated"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Streak != 1 || !resp.Updated {
		t.Fatalf("unexpected check-in result: %+v", resp)
	}
}
