package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

var (
	ErrSubscriptionNotFound = apperr.New(apperr.CodeNotFound, "subscription not found")
	ErrAlreadyTerminal      = apperr.New(apperr.CodeAlreadyTerminal, "subscription already in a terminal state")
	ErrNotOwner             = apperr.New(apperr.CodeForbidden, "subscription belongs to another user")

	// errNotActive means a conditional transition out of active matched no row.
	errNotActive = errors.New("subscription is not active")
)

const subscriptionColumns = `id, user_id, route_id, time_slot_id, weekdays, base_fee, discount,
		billing_cycle_days, current_period_start, status, cancellation_date, refund_amount,
		settled_at, created_at, updated_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, id int64) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.GetContext(ctx, sub, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return subs, err
}

// RequestCancellation moves an active subscription to pending_cancellation.
// It returns errNotActive when the row was not active at update time.
func (r *repository) RequestCancellation(ctx context.Context, id int64, at time.Time) (*Subscription, error) {
	sub := &Subscription{}
	err := r.db.QueryRowxContext(ctx, `
		UPDATE subscriptions
		SET status = 'pending_cancellation',
		    cancellation_date = $2,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING `+subscriptionColumns,
		id, at,
	).StructScan(sub)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("request cancellation of subscription %d: %w", id, err)
	}
	return sub, nil
}

func (r *repository) ListPendingCancellation(ctx context.Context) ([]Subscription, error) {
	subs := []Subscription{}
	err := r.db.SelectContext(ctx, &subs, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = 'pending_cancellation'
		ORDER BY cancellation_date, id
	`)
	return subs, err
}

// SettleTx closes a pending cancellation on tx. A subscription that is no
// longer pending yields ErrAlreadyTerminal and nothing is written.
func (r *repository) SettleTx(ctx context.Context, tx *sqlx.Tx, id int64, amount money.Amount) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'cancelled',
		    refund_amount = $2,
		    settled_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending_cancellation'
	`, id, amount)
	if err != nil {
		return fmt.Errorf("settle subscription %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyTerminal
	}
	return nil
}

// ExpireDue moves active subscriptions whose billing cycle ended by now to
// expired.
func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = 'expired',
		    updated_at = NOW()
		WHERE status = 'active'
		  AND current_period_start + make_interval(days => billing_cycle_days) <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	return res.RowsAffected()
}
