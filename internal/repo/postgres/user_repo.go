package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

// UserRecord is one row of the users table. Timestamps are normalized to
// UTC on read; last_practice_date is a calendar date with zero time-of-day.
type UserRecord struct {
	ID                    string
	TelegramID            int64
	LessonsLeft           int
	PackageExpiresAt      *time.Time
	CurrentStreak         int
	LastPracticeDate      *time.Time
	TotalLessonsCompleted int
	InterfaceLanguage     string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `
	id,
	telegram_id,
	lessons_left,
	package_expires_at,
	current_streak,
	last_practice_date,
	total_lessons_completed,
	interface_language,
	created_at,
	updated_at`

// EnsureByTelegramID creates the user row on first contact and returns the
// current row either way.
func (r *UserRepo) EnsureByTelegramID(ctx context.Context, telegramID int64) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if telegramID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid telegram id")
	}

	rec, err := scanUserRow(r.pool.QueryRow(ctx, `
INSERT INTO users (telegram_id, lessons_left, current_streak, total_lessons_completed, interface_language, created_at, updated_at)
VALUES ($1, 0, 0, 0, 'ru', NOW(), NOW())
ON CONFLICT (telegram_id) DO UPDATE
SET updated_at = users.updated_at
RETURNING`+userColumns, telegramID))
	if err != nil {
		return UserRecord{}, fmt.Errorf("ensure user by telegram id: %w", err)
	}
	return rec, nil
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanUserRow(r.pool.QueryRow(ctx, `
SELECT`+userColumns+`
FROM users
WHERE id = $1
LIMIT 1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user by id: %w", err)
	}
	return rec, nil
}

func (r *UserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	rec, err := scanUserRow(r.pool.QueryRow(ctx, `
SELECT`+userColumns+`
FROM users
WHERE telegram_id = $1
LIMIT 1`, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user by telegram id: %w", err)
	}
	return rec, nil
}

// ResetExpiredLessons zeroes the credit balance of a lapsed package. The
// condition is evaluated server-side so a concurrent grant cannot be
// clobbered by a stale snapshot.
func (r *UserRepo) ResetExpiredLessons(ctx context.Context, userID string, now time.Time) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET lessons_left = 0, updated_at = NOW()
WHERE id = $1
  AND lessons_left > 0
  AND package_expires_at IS NOT NULL
  AND package_expires_at < $2::timestamptz
`, userID, now.UTC())
	if err != nil {
		return false, fmt.Errorf("reset expired lessons: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ConsumeLesson spends one credit, clamped at zero, and bumps the completed
// counter. Returns the remaining balance.
func (r *UserRepo) ConsumeLesson(ctx context.Context, userID string) (int, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var left int
	err := r.pool.QueryRow(ctx, `
UPDATE users
SET
	lessons_left = GREATEST(lessons_left - 1, 0),
	total_lessons_completed = total_lessons_completed + 1,
	updated_at = NOW()
WHERE id = $1
RETURNING lessons_left
`, userID).Scan(&left)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("consume lesson: %w", err)
	}
	return left, nil
}

// SetStreak persists the streak counter and the practice date in one update
// so the pair can never diverge.
func (r *UserRepo) SetStreak(ctx context.Context, userID string, streak int, day time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if streak < 0 {
		return fmt.Errorf("invalid streak value")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE users
SET current_streak = $2, last_practice_date = $3::date, updated_at = NOW()
WHERE id = $1
`, userID, streak, day.UTC().Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("set streak: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) TelegramIDByUserID(ctx context.Context, userID string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var telegramID *int64
	err := r.pool.QueryRow(ctx, `
SELECT telegram_id
FROM users
WHERE id = $1
LIMIT 1`, userID).Scan(&telegramID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get telegram id: %w", err)
	}
	if telegramID == nil {
		return 0, ErrUserNotFound
	}
	return *telegramID, nil
}

func scanUserRow(row pgx.Row) (UserRecord, error) {
	var rec UserRecord
	if err := row.Scan(
		&rec.ID,
		&rec.TelegramID,
		&rec.LessonsLeft,
		&rec.PackageExpiresAt,
		&rec.CurrentStreak,
		&rec.LastPracticeDate,
		&rec.TotalLessonsCompleted,
		&rec.InterfaceLanguage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return UserRecord{}, err
	}

	rec.PackageExpiresAt = toUTC(rec.PackageExpiresAt)
	rec.LastPracticeDate = toUTC(rec.LastPracticeDate)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func toUTC(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
