package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	paymentsvc "github.com/AndreyF1/LinguaPulse/internal/services/payments"
)

// WebhookHandler terminates provider payment notifications. The provider
// retries any non-2xx response, so the status code is the retry contract:
// 200 for every terminal outcome (granted, duplicate, deferred), 4xx for
// deliveries that can never succeed, 5xx only for transient failures that
// happen before the ledger write.
type WebhookHandler struct {
	payments *paymentsvc.Service
	logger   *zap.Logger
}

func NewWebhookHandler(payments *paymentsvc.Service, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{payments: payments, logger: logger}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writePlain(w, http.StatusInternalServerError, "payments unavailable")
		return
	}

	if err := r.ParseForm(); err != nil {
		writePlain(w, http.StatusBadRequest, "bad form")
		return
	}

	raw := make(map[string]any, len(r.PostForm))
	for key := range r.PostForm {
		raw[key] = r.PostForm.Get(key)
	}

	n := paymentsvc.Notification{
		NotificationType: r.PostForm.Get("notification_type"),
		OperationID:      r.PostForm.Get("operation_id"),
		Amount:           r.PostForm.Get("amount"),
		Currency:         r.PostForm.Get("currency"),
		Datetime:         r.PostForm.Get("datetime"),
		Sender:           r.PostForm.Get("sender"),
		Codepro:          r.PostForm.Get("codepro"),
		Label:            r.PostForm.Get("label"),
		SHA1Hash:         r.PostForm.Get("sha1_hash"),
		Raw:              raw,
	}

	result, err := h.payments.HandleNotification(r.Context(), n)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrSignature):
			writePlain(w, http.StatusForbidden, "bad signature")
		case errors.Is(err, paymentsvc.ErrMalformedLabel):
			writePlain(w, http.StatusBadRequest, "bad label")
		case errors.Is(err, paymentsvc.ErrRejected):
			writePlain(w, http.StatusBadRequest, "rejected")
		default:
			h.logger.Error("webhook delivery failed before ledger write", zap.Error(err))
			writePlain(w, http.StatusInternalServerError, "try later")
		}
		return
	}

	if result.GrantDeferred {
		h.logger.Warn("acknowledged delivery with deferred grant", zap.String("payment_id", result.PaymentID))
	}
	writePlain(w, http.StatusOK, "OK")
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
