package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrDuplicatePayment = errors.New("duplicate payment")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrAlreadyGranted   = errors.New("entitlement already granted")
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

// PaymentRecord is one ledger row. The id is derived deterministically from
// the provider order id, so re-delivered notifications collide on the
// primary key instead of creating a second row.
type PaymentRecord struct {
	ID                  string
	UserID              string
	ProductID           string
	AmountKopecks       int
	Status              string
	Provider            string
	ProviderOperationID string
	Label               string
	Raw                 map[string]any
	EntitlementGranted  bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// GrantOutcome is the entitlement snapshot after a successful grant.
type GrantOutcome struct {
	LessonsLeft      int
	PackageExpiresAt time.Time
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// PaymentID derives the stable ledger identity for a provider order.
func PaymentID(orderID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("yoomoney-"+strings.TrimSpace(orderID))).String()
}

// Insert writes one ledger row. A second delivery of the same operation
// returns ErrDuplicatePayment without touching the existing row.
func (r *PaymentRepo) Insert(ctx context.Context, rec PaymentRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if rec.ID == "" || rec.UserID == "" {
		return fmt.Errorf("invalid payment record")
	}

	rawJSON, err := marshalRawPayload(rec.Raw)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO payments (
	id,
	user_id,
	product_id,
	amount,
	status,
	provider,
	provider_operation_id,
	label,
	raw,
	entitlement_granted,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, 'yoomoney', $6, $7, $8::jsonb, FALSE, NOW(), NOW())
ON CONFLICT (id) DO NOTHING
`, rec.ID, rec.UserID, rec.ProductID, rec.AmountKopecks, rec.Status, rec.ProviderOperationID, rec.Label, rawJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicatePayment
	}
	return nil
}

// GrantAndMark applies the purchased package to the user's entitlement row
// and flips the ledger's granted flag in one transaction. The flag update is
// conditional, so a webhook retry and the reconcile sweep can race without
// double-granting: the loser gets ErrAlreadyGranted.
func (r *PaymentRepo) GrantAndMark(
	ctx context.Context,
	paymentID, userID string,
	lessons, days int,
	now time.Time,
) (GrantOutcome, error) {
	if r.pool == nil {
		return GrantOutcome{}, fmt.Errorf("postgres pool is nil")
	}
	if paymentID == "" || userID == "" || lessons < 0 || days <= 0 {
		return GrantOutcome{}, fmt.Errorf("invalid grant payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out GrantOutcome
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(txCtx, `
UPDATE payments
SET entitlement_granted = TRUE, updated_at = NOW()
WHERE id = $1
  AND status = 'paid'
  AND entitlement_granted = FALSE
`, paymentID)
		if err != nil {
			return fmt.Errorf("mark payment granted: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAlreadyGranted
		}

		var expires time.Time
		err = tx.QueryRow(txCtx, `
UPDATE users
SET
	lessons_left = lessons_left + $2,
	package_expires_at = CASE
		WHEN package_expires_at IS NOT NULL AND package_expires_at > $3::timestamptz
			THEN package_expires_at + $4 * INTERVAL '1 day'
		ELSE $3::timestamptz + $4 * INTERVAL '1 day'
	END,
	updated_at = NOW()
WHERE id = $1
RETURNING lessons_left, package_expires_at
`, userID, lessons, now.UTC(), days).Scan(&out.LessonsLeft, &expires)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("grant entitlement: %w", err)
		}
		out.PackageExpiresAt = expires.UTC()
		return nil
	})
	if err != nil {
		return GrantOutcome{}, err
	}
	return out, nil
}

// ListUngranted returns paid rows whose entitlement grant has not been
// confirmed yet, oldest first. Used by the reconcile sweep.
func (r *PaymentRepo) ListUngranted(ctx context.Context, olderThan time.Time, limit int) ([]PaymentRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	id,
	user_id,
	product_id,
	amount,
	status,
	provider,
	provider_operation_id,
	label,
	raw,
	entitlement_granted,
	created_at,
	updated_at
FROM payments
WHERE status = 'paid'
  AND entitlement_granted = FALSE
  AND created_at < $1::timestamptz
ORDER BY created_at
LIMIT $2
`, olderThan.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list ungranted payments: %w", err)
	}
	defer rows.Close()

	var out []PaymentRecord
	for rows.Next() {
		rec, err := scanPaymentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ungranted payment: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ungranted payments: %w", err)
	}
	return out, nil
}

func (r *PaymentRepo) GetByID(ctx context.Context, paymentID string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanPaymentRow(r.pool.QueryRow(ctx, `
SELECT
	id,
	user_id,
	product_id,
	amount,
	status,
	provider,
	provider_operation_id,
	label,
	raw,
	entitlement_granted,
	created_at,
	updated_at
FROM payments
WHERE id = $1
LIMIT 1`, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("get payment: %w", err)
	}
	return rec, nil
}

func scanPaymentRow(row pgx.Row) (PaymentRecord, error) {
	var rec PaymentRecord
	var rawJSON []byte
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.ProductID,
		&rec.AmountKopecks,
		&rec.Status,
		&rec.Provider,
		&rec.ProviderOperationID,
		&rec.Label,
		&rawJSON,
		&rec.EntitlementGranted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return PaymentRecord{}, err
	}
	rec.Raw = decodeRawPayload(rawJSON)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func marshalRawPayload(payload map[string]any) (string, error) {
	if payload == nil {
		return "null", nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payment payload: %w", err)
	}
	return string(raw), nil
}

func decodeRawPayload(raw []byte) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}
