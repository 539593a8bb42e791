package payments

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AndreyF1/LinguaPulse/internal/domain/catalog"
	"github.com/AndreyF1/LinguaPulse/internal/domain/enums"
	"github.com/AndreyF1/LinguaPulse/internal/domain/rules"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
)

var (
	ErrSignature      = errors.New("bad signature")
	ErrMalformedLabel = errors.New("malformed label")
	ErrRejected       = errors.New("payment rejected")
)

// Notification is one inbound provider webhook, already form-decoded.
type Notification struct {
	NotificationType string
	OperationID      string
	Amount           string
	Currency         string
	Datetime         string
	Sender           string
	Codepro          string
	Label            string
	SHA1Hash         string
	Raw              map[string]any
}

type Ledger interface {
	Insert(ctx context.Context, rec pgrepo.PaymentRecord) error
	GrantAndMark(ctx context.Context, paymentID, userID string, lessons, days int, now time.Time) (pgrepo.GrantOutcome, error)
}

type UserDirectory interface {
	TelegramIDByUserID(ctx context.Context, userID string) (int64, error)
}

type Notifier interface {
	Send(chatID int64, text string) error
}

type Service struct {
	verifier *Verifier
	ledger   Ledger
	users    UserDirectory
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Verifier *Verifier
	Ledger   Ledger
	Users    UserDirectory
	Notifier Notifier
	Logger   *zap.Logger
}

// Result is the terminal outcome of one notification delivery.
type Result struct {
	PaymentID        string
	UserID           string
	ProductID        string
	Duplicate        bool
	GrantDeferred    bool
	LessonsLeft      int
	PackageExpiresAt time.Time
}

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		verifier: deps.Verifier,
		ledger:   deps.Ledger,
		users:    deps.Users,
		notifier: deps.Notifier,
		logger:   log,
		now:      time.Now,
	}
}

// HandleNotification drives one delivery end to end: verify, decode,
// validate, ledger, grant, notify. The ledger insert is the de-duplication
// gate; entitlement is granted only on the first delivery, and a grant
// failure after the ledger write is deferred to the reconcile sweep rather
// than surfaced to the provider.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (Result, error) {
	if s.verifier == nil || s.ledger == nil {
		return Result{}, fmt.Errorf("payments dependencies are not configured")
	}

	if err := s.verifier.Verify(n); err != nil {
		return Result{}, err
	}

	token, err := DecodeLabel(n.Label)
	if err != nil {
		return Result{}, err
	}

	paymentID := pgrepo.PaymentID(token.OrderID)
	kopecks, amountOK := parseAmountKopecks(n.Amount)

	product, err := catalog.Resolve(token.ProductID)
	if err != nil {
		s.recordRejected(ctx, paymentID, token, kopecks, n, "unknown_product")
		return Result{}, fmt.Errorf("%w: unknown product %q", ErrRejected, token.ProductID)
	}

	if !amountOK || !rules.AmountWithinTolerance(kopecks, product.PriceKopecks) {
		s.recordRejected(ctx, paymentID, token, kopecks, n, "amount_mismatch")
		return Result{}, fmt.Errorf("%w: amount %q outside tolerance for product %s", ErrRejected, n.Amount, product.ID)
	}

	err = s.ledger.Insert(ctx, pgrepo.PaymentRecord{
		ID:                  paymentID,
		UserID:              token.UserID,
		ProductID:           product.ID,
		AmountKopecks:       kopecks,
		Status:              string(enums.PaymentPaid),
		ProviderOperationID: n.OperationID,
		Label:               n.Label,
		Raw:                 n.Raw,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrDuplicatePayment) {
			s.logger.Info("duplicate payment delivery",
				zap.String("payment_id", paymentID),
				zap.String("operation_id", n.OperationID),
			)
			return Result{PaymentID: paymentID, UserID: token.UserID, ProductID: product.ID, Duplicate: true}, nil
		}
		return Result{}, fmt.Errorf("record payment: %w", err)
	}

	outcome, err := s.ledger.GrantAndMark(ctx, paymentID, token.UserID, product.Lessons, product.Days, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrAlreadyGranted) {
			return Result{PaymentID: paymentID, UserID: token.UserID, ProductID: product.ID, Duplicate: true}, nil
		}
		// The payment is durably recorded; the reconcile sweep retries the
		// grant, so the provider must not see this as a failure.
		s.logger.Warn("entitlement grant deferred",
			zap.String("payment_id", paymentID),
			zap.String("user_id", token.UserID),
			zap.Error(err),
		)
		return Result{PaymentID: paymentID, UserID: token.UserID, ProductID: product.ID, GrantDeferred: true}, nil
	}

	s.notifyGranted(ctx, token.UserID, product, outcome)

	return Result{
		PaymentID:        paymentID,
		UserID:           token.UserID,
		ProductID:        product.ID,
		LessonsLeft:      outcome.LessonsLeft,
		PackageExpiresAt: outcome.PackageExpiresAt,
	}, nil
}

// recordRejected writes an audit-only failed ledger row. Failing to record
// it is logged but does not change the terminal outcome.
func (s *Service) recordRejected(ctx context.Context, paymentID string, token OrderToken, kopecks int, n Notification, reason string) {
	raw := map[string]any{"reason": reason}
	for k, v := range n.Raw {
		raw[k] = v
	}

	err := s.ledger.Insert(ctx, pgrepo.PaymentRecord{
		ID:                  paymentID,
		UserID:              token.UserID,
		ProductID:           token.ProductID,
		AmountKopecks:       kopecks,
		Status:              string(enums.PaymentFailed),
		ProviderOperationID: n.OperationID,
		Label:               n.Label,
		Raw:                 raw,
	})
	if err != nil && !errors.Is(err, pgrepo.ErrDuplicatePayment) {
		s.logger.Warn("record rejected payment failed",
			zap.String("payment_id", paymentID),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}
}

func (s *Service) notifyGranted(ctx context.Context, userID string, product catalog.Product, outcome pgrepo.GrantOutcome) {
	if s.notifier == nil || s.users == nil {
		return
	}

	telegramID, err := s.users.TelegramIDByUserID(ctx, userID)
	if err != nil {
		s.logger.Warn("payment notification skipped", zap.String("user_id", userID), zap.Error(err))
		return
	}

	text := fmt.Sprintf(
		"💳 *Оплата получена!* ✅\n\n+%d уроков до %s\n\nПриятной практики! 🎯",
		product.Lessons,
		outcome.PackageExpiresAt.Format("2006-01-02"),
	)
	if err := s.notifier.Send(telegramID, text); err != nil {
		s.logger.Warn("payment notification failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
	}
}

func parseAmountKopecks(amount string) (int, bool) {
	f, err := strconv.ParseFloat(amount, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(math.Round(f * 100)), true
}
