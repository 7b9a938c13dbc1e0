package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jobdeck/metering/pkg/pg"
	"github.com/jobdeck/metering/pkg/plans"
)

// DB is the subset of pgxpool.Pool used by the postgres store. It is also
// satisfied by pgx.Tx, so callers can run ledger mutations inside the same
// transaction as the gated write they meter.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of PostgreSQL. Every mutation is a
// single guarded statement whose affected-row count decides success, so the
// check and the write cannot race even across processes.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Store backed by the given pgx pool or transaction.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("ledger: DB is required")
	}
	return &PostgresStore{db: db}
}

func (s *PostgresStore) IncrementUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount, limit int64, periodStart time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	// A fresh counter starts at zero, so an amount past the limit can never
	// succeed regardless of stored state.
	if limit != plans.Unlimited && amount > limit {
		return ErrLimitExceeded
	}

	// The upsert resets counters that belong to an earlier period, then
	// applies the increment only when it stays within the limit. Zero rows
	// affected means the guard rejected it.
	tag, err := s.db.Exec(ctx, `
		INSERT INTO usage_counters AS u (user_id, resource, period_start, used)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, resource) DO UPDATE SET
			used = CASE
				WHEN u.period_start < excluded.period_start THEN excluded.used
				ELSE u.used + excluded.used
			END,
			period_start = GREATEST(u.period_start, excluded.period_start)
		WHERE $5::bigint = 0
			OR (CASE
				WHEN u.period_start < excluded.period_start THEN excluded.used
				ELSE u.used + excluded.used
			END) <= $5::bigint`,
		userID, res, periodStart, amount, limit)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLimitExceeded
	}
	return nil
}

func (s *PostgresStore) ConsumeCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var remaining int64
	err := s.db.QueryRow(ctx, `
		UPDATE credit_balances
		SET balance = balance - $3,
			used_credits = used_credits + $3,
			last_used_at = now()
		WHERE user_id = $1 AND resource = $2
			AND balance >= $3
			AND (expires_at IS NULL OR expires_at > now())
		RETURNING balance`,
		userID, res, amount).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, storageErr(err)
	}

	// Guard rejected; read the row to report the precise denial.
	balance, err := s.GetBalance(ctx, userID, res)
	if err != nil {
		return 0, err
	}
	if balance.Expired(time.Now().UTC()) {
		return balance.Balance, ErrExpiredCredits
	}
	return balance.Balance, ErrInsufficientCredits
}

func (s *PostgresStore) AddCredits(ctx context.Context, userID uuid.UUID, res plans.ResourceType, amount int64, expiresAt *time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	// NULL expiry means the credits never expire and always wins the merge.
	_, err := s.db.Exec(ctx, `
		INSERT INTO credit_balances AS b (user_id, resource, balance, total_purchased, used_credits, expires_at)
		VALUES ($1, $2, $3, $3, 0, $4)
		ON CONFLICT (user_id, resource) DO UPDATE SET
			balance = b.balance + excluded.balance,
			total_purchased = b.total_purchased + excluded.total_purchased,
			expires_at = CASE
				WHEN b.expires_at IS NULL OR excluded.expires_at IS NULL THEN NULL
				ELSE GREATEST(b.expires_at, excluded.expires_at)
			END`,
		userID, res, amount, expiresAt)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *PostgresStore) GetUsage(ctx context.Context, userID uuid.UUID, res plans.ResourceType, periodStart time.Time) (Usage, error) {
	u := Usage{UserID: userID, Resource: res, PeriodStart: periodStart}

	var stored time.Time
	var used int64
	err := s.db.QueryRow(ctx, `
		SELECT period_start, used FROM usage_counters
		WHERE user_id = $1 AND resource = $2`,
		userID, res).Scan(&stored, &used)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, nil
	}
	if err != nil {
		return Usage{}, storageErr(err)
	}

	// Stale counters from a previous period read as zero.
	if !stored.Before(periodStart) {
		u.PeriodStart = stored
		u.Used = used
	}
	return u, nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID uuid.UUID, res plans.ResourceType) (CreditBalance, error) {
	b := CreditBalance{UserID: userID, Resource: res}
	err := s.db.QueryRow(ctx, `
		SELECT balance, total_purchased, used_credits, expires_at, last_used_at
		FROM credit_balances
		WHERE user_id = $1 AND resource = $2`,
		userID, res).Scan(&b.Balance, &b.TotalPurchased, &b.UsedCredits, &b.ExpiresAt, &b.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return b, nil
	}
	if err != nil {
		return CreditBalance{}, storageErr(err)
	}
	return b, nil
}

// storageErr classifies a database failure: serialization conflicts are
// retryable races, everything else is infrastructure.
func storageErr(err error) error {
	if pg.IsSerializationFailure(err) {
		return errors.Join(ErrConcurrentModification, err)
	}
	return errors.Join(ErrStorageUnavailable, err)
}
