package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AndreyF1/LinguaPulse/internal/domain/catalog"
	pgrepo "github.com/AndreyF1/LinguaPulse/internal/repo/postgres"
)

// Job re-applies entitlement grants for paid ledger rows that never got
// their grant confirmed, e.g. when the webhook crashed between the ledger
// insert and the user update. GrantAndMark is conditional, so sweeping a
// row the webhook already granted is harmless.
type Job struct {
	ledger    grantLedger
	minAge    time.Duration
	batchSize int
	now       func() time.Time
	logger    *zap.Logger
}

type grantLedger interface {
	ListUngranted(ctx context.Context, olderThan time.Time, limit int) ([]pgrepo.PaymentRecord, error)
	GrantAndMark(ctx context.Context, paymentID, userID string, lessons, days int, now time.Time) (pgrepo.GrantOutcome, error)
}

func New(ledger grantLedger, minAge time.Duration, logger *zap.Logger) *Job {
	if minAge <= 0 {
		minAge = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		ledger:    ledger,
		minAge:    minAge,
		batchSize: 100,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.ledger == nil {
		return nil
	}

	cutoff := j.now().UTC().Add(-j.minAge)
	rows, err := j.ledger.ListUngranted(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("list ungranted payments: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	granted := 0
	for _, rec := range rows {
		product, err := catalog.Resolve(rec.ProductID)
		if err != nil {
			// A paid row with an unknown product cannot be repaired
			// automatically; leave it for a human.
			j.logger.Error("ungranted payment references unknown product",
				zap.String("payment_id", rec.ID),
				zap.String("product_id", rec.ProductID))
			continue
		}

		_, err = j.ledger.GrantAndMark(ctx, rec.ID, rec.UserID, product.Lessons, product.Days, j.now().UTC())
		if errors.Is(err, pgrepo.ErrAlreadyGranted) {
			continue
		}
		if err != nil {
			j.logger.Warn("reconcile grant failed",
				zap.String("payment_id", rec.ID),
				zap.String("user_id", rec.UserID),
				zap.Error(err))
			continue
		}
		granted++
	}

	if granted > 0 {
		j.logger.Info("reconcile sweep completed", zap.Int("granted", granted), zap.Int("scanned", len(rows)))
	}
	return nil
}
