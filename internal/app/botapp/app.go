package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/AndreyF1/LinguaPulse/internal/config"
	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
	"github.com/AndreyF1/LinguaPulse/internal/infra/openai"
	tginfra "github.com/AndreyF1/LinguaPulse/internal/infra/telegram"
	"github.com/AndreyF1/LinguaPulse/internal/jobs/reconcile"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
	redrepo "github.com/AndreyF1/LinguaPulse/internal/repo/redis"
	entsvc "github.com/AndreyF1/LinguaPulse/internal/services/entitlements"
	practicesvc "github.com/AndreyF1/LinguaPulse/internal/services/practice"
	ratesvc "github.com/AndreyF1/LinguaPulse/internal/services/rate"
)

const (
	welcomeText     = "Привет! Я помогу тебе практиковать английский. Напиши мне что-нибудь, или выбери режим командой /mode."
	noAccessText    = "Для этого режима нужен активный пакет. Открой Mini App, чтобы оформить подписку."
	rateLimitedText = "Слишком быстро! Подожди немного и попробуй снова."
	turnFailedText  = "Не получилось обработать сообщение, попробуй ещё раз."
	unknownModeText = "Неизвестный режим. Доступны: text_dialog, grammar, translation, audio_feedback."
)

type App struct {
	cfg          config.Config
	logger       *zap.Logger
	postgres     *pgxpool.Pool
	bot          *tginfra.Bot
	userRepo     *pgrepo.UserRepo
	entitlements *entsvc.Service
	practice     *practicesvc.Service
	reconcileJob *reconcile.Job

	modeMu     sync.Mutex
	modeByChat map[int64]enums.DialogMode
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	userRepo := pgrepo.NewUserRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)

	entitlementService := entsvc.NewService(userRepo, logger)
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
		Logger:    logger,
	})
	reconcileJob := reconcile.New(paymentRepo, cfg.Reconcile.MinAge, logger)

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, practice listener disabled")
	}

	return &App{
		cfg:          cfg,
		logger:       logger,
		postgres:     pool,
		bot:          bot,
		userRepo:     userRepo,
		entitlements: entitlementService,
		practice:     practiceService,
		reconcileJob: reconcileJob,
		modeByChat:   make(map[int64]enums.DialogMode),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runReconcileLoop(ctx)
	}()

	if a.bot != nil {
		go func() {
			errCh <- a.bot.Listen(ctx, tginfra.Handlers{
				OnCommand: a.handleCommand,
				OnText:    a.handleText,
			})
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("bot app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runReconcileLoop(ctx context.Context) error {
	if a.reconcileJob == nil {
		return nil
	}

	interval := a.cfg.Reconcile.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	if err := a.reconcileJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.reconcileJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	if a.bot == nil {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		if _, err := a.userRepo.EnsureByTelegramID(ctx, update.UserID); err != nil {
			a.logger.Warn("failed to ensure user on /start", zap.Int64("telegram_id", update.UserID), zap.Error(err))
		}
		return a.bot.Send(update.ChatID, welcomeText)
	case "profile":
		return a.sendProfile(ctx, update.ChatID, update.UserID)
	case "mode":
		return a.setMode(update.ChatID, update.Args)
	default:
		return nil
	}
}

func (a *App) handleText(ctx context.Context, update tginfra.TextUpdate) error {
	if a.bot == nil {
		return nil
	}

	a.modeMu.Lock()
	mode, ok := a.modeByChat[update.ChatID]
	a.modeMu.Unlock()
	if !ok {
		mode = enums.ModeTextDialog
	}

	result, err := a.practice.Turn(ctx, update.UserID, mode, update.Text)
	if err != nil {
		switch {
		case errors.Is(err, practicesvc.ErrNoAccess):
			return a.bot.Send(update.ChatID, noAccessText)
		case errors.Is(err, practicesvc.ErrRateLimited):
			return a.bot.Send(update.ChatID, rateLimitedText)
		default:
			a.logger.Warn("practice turn failed", zap.Int64("telegram_id", update.UserID), zap.Error(err))
			return a.bot.Send(update.ChatID, turnFailedText)
		}
	}

	return a.bot.Send(update.ChatID, result.Reply)
}

func (a *App) setMode(chatID int64, args string) error {
	mode, err := enums.ParseDialogMode(strings.TrimSpace(args))
	if err != nil {
		return a.bot.Send(chatID, unknownModeText)
	}

	a.modeMu.Lock()
	a.modeByChat[chatID] = mode
	a.modeMu.Unlock()

	return a.bot.Send(chatID, fmt.Sprintf("Режим переключён: %s", mode))
}

func (a *App) sendProfile(ctx context.Context, chatID, telegramID int64) error {
	profile, err := a.entitlements.Profile(ctx, telegramID)
	if err != nil {
		a.logger.Warn("failed to load profile", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return a.bot.Send(chatID, turnFailedText)
	}

	lines := []string{
		"*Твой профиль*",
		fmt.Sprintf("Уроков осталось: %d", profile.LessonsLeft),
	}
	if profile.PackageExpiresAt != nil {
		lines = append(lines, fmt.Sprintf("Пакет активен до: %s", profile.PackageExpiresAt.Format("02.01.2006")))
	} else {
		lines = append(lines, "Активного пакета нет")
	}
	lines = append(lines,
		fmt.Sprintf("Стрик: %d дней", profile.CurrentStreak),
		fmt.Sprintf("Всего уроков пройдено: %d", profile.TotalLessonsCompleted),
	)

	return a.bot.Send(chatID, strings.Join(lines, "\n"))
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
