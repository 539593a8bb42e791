package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/AndreyF1/LinguaPulse/internal/app/apiapp"
	"github.com/AndreyF1/LinguaPulse/internal/config"
)

func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.HTTP.Addr = ":0"
	cfg.Payments.WebhookSecret = "integration-secret"

	app, err := apiapp.New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestApp(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestWebhookRejectsForgedNotification(t *testing.T) {
	ts := newTestApp(t)

	form := url.Values{}
	form.Set("notification_type", "p2p-incoming")
	form.Set("operation_id", "op-1")
	form.Set("amount", "2.00")
	form.Set("currency", "643")
	form.Set("datetime", "2026-03-10T12:00:00Z")
	form.Set("sender", "41001000000000")
	form.Set("codepro", "false")
	form.Set("label", "whatever")
	form.Set("sha1_hash", strings.Repeat("0", 40))

	resp, err := http.Post(ts.URL+"/payments/webhook", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestPracticeTurnRejectsUnknownMode(t *testing.T) {
	ts := newTestApp(t)

	body := `{"telegram_id":42,"mode":"karaoke","message":"hi"}`
	resp, err := http.Post(ts.URL+"/practice/turn", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post practice turn: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
