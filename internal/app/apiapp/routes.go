package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	entsvc "github.com/AndreyF1/LinguaPulse/internal/services/entitlements"
	paymentsvc "github.com/AndreyF1/LinguaPulse/internal/services/payments"
	practicesvc "github.com/AndreyF1/LinguaPulse/internal/services/practice"
	"github.com/AndreyF1/LinguaPulse/internal/transport/http/handlers"
)

type Dependencies struct {
	PaymentService     *paymentsvc.Service
	EntitlementService *entsvc.Service
	PracticeService    *practicesvc.Service
	Logger             *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	webhookHandler := handlers.NewWebhookHandler(deps.PaymentService, deps.Logger)
	practiceHandler := handlers.NewPracticeHandler(deps.PracticeService)
	profileHandler := handlers.NewProfileHandler(deps.EntitlementService, deps.PracticeService)

	r.Get("/healthz", healthHandler.Get)
	r.Post("/payments/webhook", webhookHandler.Handle)
	r.Post("/practice/turn", practiceHandler.Turn)
	r.Post("/practice/checkin", practiceHandler.CheckIn)
	r.Post("/lessons/complete", profileHandler.CompleteLesson)
	r.Get("/users/{telegram_id}/profile", profileHandler.Get)
}
