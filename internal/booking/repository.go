package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
)

var (
	ErrTripNotFound          = apperr.New(apperr.CodeNotFound, "trip not found")
	ErrBookingNotFound       = apperr.New(apperr.CodeNotFound, "booking not found")
	ErrTripNotScheduled      = apperr.New(apperr.CodeConflict, "trip is no longer scheduled")
	ErrBookingNotCancellable = apperr.New(apperr.CodeConflict, "booking can no longer be cancelled")
	ErrRefundSettled         = apperr.New(apperr.CodeAlreadyTerminal, "booking refund is not pending")
	ErrNotOwner              = apperr.New(apperr.CodeForbidden, "booking belongs to another user")
)

const (
	tripColumns    = `id, route_name, departure_at, status, created_at, updated_at`
	bookingColumns = `id, trip_id, user_id, fare, status, refund_status, refund_reason, refund_amount,
		refunded_at, created_at, updated_at`
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetTrip(ctx context.Context, id int64) (*Trip, error) {
	var trip Trip
	err := r.db.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *repository) GetBooking(ctx context.Context, id int64) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return bookings, err
}

// SetTripStatusTx moves a scheduled trip to status `to`. Trips in any other
// state are left alone and ErrTripNotScheduled is returned.
func (r *repository) SetTripStatusTx(ctx context.Context, tx *sqlx.Tx, tripID int64, to TripStatus) (*Trip, error) {
	var trip Trip
	err := tx.GetContext(ctx, &trip, `
		UPDATE trips
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING `+tripColumns,
		tripID, to,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotScheduled
	}
	if err != nil {
		return nil, fmt.Errorf("set trip %d status: %w", tripID, err)
	}
	return &trip, nil
}

// FlagTripRefundsTx marks every live booking of a trip as owed its fare.
// With cancel set the bookings are cancelled as well.
func (r *repository) FlagTripRefundsTx(ctx context.Context, tx *sqlx.Tx, tripID int64, reason ledger.Category, cancel bool) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET refund_status = 'pending',
		    refund_reason = $2,
		    refund_amount = fare,
		    status = CASE WHEN $3 THEN 'cancelled' ELSE status END,
		    updated_at = NOW()
		WHERE trip_id = $1 AND status = 'booked' AND refund_status = 'none'
	`, tripID, reason, cancel)
	if err != nil {
		return 0, fmt.Errorf("flag refunds for trip %d: %w", tripID, err)
	}
	return res.RowsAffected()
}

// CancelBooking cancels a rider's own booking ahead of departure and queues
// a trip_cancellation refund of its fare.
func (r *repository) CancelBooking(ctx context.Context, bookingID, userID int64) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, `
		UPDATE bookings b
		SET status = 'cancelled',
		    refund_status = 'pending',
		    refund_reason = 'trip_cancellation',
		    refund_amount = b.fare,
		    updated_at = NOW()
		FROM trips t
		WHERE b.id = $1
		  AND b.user_id = $2
		  AND b.status = 'booked'
		  AND b.refund_status = 'none'
		  AND t.id = b.trip_id
		  AND t.status = 'scheduled'
		  AND t.departure_at > NOW()
		RETURNING b.id, b.trip_id, b.user_id, b.fare, b.status, b.refund_status, b.refund_reason,
		          b.refund_amount, b.refunded_at, b.created_at, b.updated_at
	`, bookingID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotCancellable
	}
	if err != nil {
		return nil, fmt.Errorf("cancel booking %d: %w", bookingID, err)
	}
	return &b, nil
}

func (r *repository) ListPendingRefunds(ctx context.Context) ([]PendingRefund, error) {
	refunds := []PendingRefund{}
	err := r.db.SelectContext(ctx, &refunds, `
		SELECT b.id AS booking_id, b.trip_id, t.route_name, t.departure_at,
		       b.user_id, u.name AS user_name, u.email AS user_email,
		       COALESCE(b.refund_amount, b.fare) AS amount, b.refund_reason AS reason
		FROM bookings b
		JOIN trips t ON t.id = b.trip_id
		JOIN users u ON u.id = b.user_id
		WHERE b.refund_status = 'pending'
		ORDER BY b.trip_id, b.id
	`)
	return refunds, err
}

// MarkRefundedTx settles a pending booking refund on tx. A booking whose
// refund is no longer pending yields ErrRefundSettled.
func (r *repository) MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, bookingID int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET refund_status = 'refunded',
		    refunded_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND refund_status = 'pending'
	`, bookingID)
	if err != nil {
		return fmt.Errorf("mark booking %d refunded: %w", bookingID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRefundSettled
	}
	return nil
}
