package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jobdeck/metering/pkg/pg"
	"github.com/jobdeck/metering/pkg/plans"
)

// DB is the subset of pgxpool.Pool used by the postgres store.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store on PostgreSQL. The one-open-subscription
// invariant is enforced by a partial unique index on
// (user_id) WHERE status IN ('active', 'trial'), so racing writers cannot
// leave two open rows regardless of application logic.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Store backed by the given pgx pool.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("subscription: DB is required")
	}
	return &PostgresStore{db: db}
}

const openStatuses = "('active', 'trial')"

func (s *PostgresStore) Get(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	row := s.db.QueryRow(ctx, `
		SELECT user_id, plan_id, status, billing_interval, limits,
			period_start, period_end, trial_ends_at, created_at, updated_at, cancelled_at
		FROM subscriptions
		WHERE user_id = $1 AND status IN `+openStatuses,
		userID)
	return scanSubscription(row)
}

func (s *PostgresStore) Save(ctx context.Context, sub *Subscription) error {
	limits, err := json.Marshal(sub.Limits)
	if err != nil {
		return fmt.Errorf("marshal limits: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE subscriptions SET
			plan_id = $2, status = $3, billing_interval = $4, limits = $5,
			period_start = $6, period_end = $7, trial_ends_at = $8,
			updated_at = $9, cancelled_at = $10
		WHERE user_id = $1 AND status IN `+openStatuses,
		sub.UserID, sub.PlanID, sub.Status, sub.Interval, limits,
		sub.PeriodStart, sub.PeriodEnd, sub.TrialEndsAt, sub.UpdatedAt, sub.CancelledAt)
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	return s.insert(ctx, s.db, sub)
}

func (s *PostgresStore) Activate(ctx context.Context, sub *Subscription) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'canceled', cancelled_at = $2, updated_at = $2
		WHERE user_id = $1 AND status IN `+openStatuses,
		sub.UserID, now); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}

	if err := s.insert(ctx, tx, sub); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) EnsureDefault(ctx context.Context, sub *Subscription) (*Subscription, error) {
	limits, err := json.Marshal(sub.Limits)
	if err != nil {
		return nil, fmt.Errorf("marshal limits: %w", err)
	}

	// The partial unique index turns concurrent first accesses into a single
	// winner; losers fall through to the SELECT and adopt the stored row.
	if _, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions
			(user_id, plan_id, status, billing_interval, limits,
			 period_start, period_end, trial_ends_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (user_id) WHERE status IN `+openStatuses+` DO NOTHING`,
		sub.UserID, sub.PlanID, sub.Status, sub.Interval, limits,
		sub.PeriodStart, sub.PeriodEnd, sub.TrialEndsAt, sub.CreatedAt); err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}

	return s.Get(ctx, sub.UserID)
}

func (s *PostgresStore) insert(ctx context.Context, db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, sub *Subscription) error {
	limits, err := json.Marshal(sub.Limits)
	if err != nil {
		return fmt.Errorf("marshal limits: %w", err)
	}

	if _, err := db.Exec(ctx, `
		INSERT INTO subscriptions
			(user_id, plan_id, status, billing_interval, limits,
			 period_start, period_end, trial_ends_at, created_at, updated_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sub.UserID, sub.PlanID, sub.Status, sub.Interval, limits,
		sub.PeriodStart, sub.PeriodEnd, sub.TrialEndsAt, sub.CreatedAt,
		sub.UpdatedAt, sub.CancelledAt); err != nil {
		if pg.IsUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	var limits []byte
	err := row.Scan(&sub.UserID, &sub.PlanID, &sub.Status, &sub.Interval, &limits,
		&sub.PeriodStart, &sub.PeriodEnd, &sub.TrialEndsAt,
		&sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStorageUnavailable, err)
	}

	sub.Limits = make(map[plans.ResourceType]int64)
	if len(limits) > 0 {
		if err := json.Unmarshal(limits, &sub.Limits); err != nil {
			return nil, fmt.Errorf("unmarshal limits: %w", err)
		}
	}
	return &sub, nil
}
