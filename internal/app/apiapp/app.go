package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AndreyF1/LinguaPulse/internal/config"
	"github.com/AndreyF1/LinguaPulse/internal/infra/openai"
	tginfra "github.com/AndreyF1/LinguaPulse/internal/infra/telegram"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
	redrepo "github.com/AndreyF1/LinguaPulse/internal/repo/redis"
	entsvc "github.com/AndreyF1/LinguaPulse/internal/services/entitlements"
	paymentsvc "github.com/AndreyF1/LinguaPulse/internal/services/payments"
	practicesvc "github.com/AndreyF1/LinguaPulse/internal/services/practice"
	ratesvc "github.com/AndreyF1/LinguaPulse/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)

	var notifier paymentsvc.Notifier
	if cfg.Bot.Token != "" {
		if bot, err := tginfra.NewBot(cfg.Bot.Token); err != nil {
			log.Warn("telegram bot init failed, payment confirmations disabled", zap.Error(err))
		} else {
			notifier = bot
		}
	}

	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Verifier: paymentsvc.NewVerifier(cfg.Payments.WebhookSecret),
		Ledger:   paymentRepo,
		Users:    userRepo,
		Notifier: notifier,
		Logger:   log,
	})
	entitlementService := entsvc.NewService(userRepo, log)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.TurnsPerMinute, cfg.Limits.TurnsPer10Seconds)
	completionClient := openai.NewClient(openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Temperature: cfg.OpenAI.Temperature,
		Timeout:     cfg.OpenAI.Timeout,
	})
	practiceService := practicesvc.NewService(practicesvc.Dependencies{
		Users:     userRepo,
		Access:    entitlementService,
		Limiter:   rateLimiter,
		Completer: completionClient,
		Logger:    log,
	})

	RegisterRoutes(r, Dependencies{
		PaymentService:     paymentService,
		EntitlementService: entitlementService,
		PracticeService:    practiceService,
		Logger:             log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
