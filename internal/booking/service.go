package booking

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/metrics"
)

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Service interface {
	CancelTrip(ctx context.Context, tripID int64) (*TripResult, error)
	MarkTripMissed(ctx context.Context, tripID int64) (*TripResult, error)
	CancelBooking(ctx context.Context, actor auth.Actor, bookingID int64) (*Booking, error)
	ListForUser(ctx context.Context, userID int64) ([]Booking, error)
	ListPendingRefunds(ctx context.Context) ([]PendingRefund, error)
	MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, bookingID int64) error
}

type service struct {
	repo Repository
	tx   TxRunner
}

func NewService(repo Repository, tx TxRunner) Service {
	return &service{repo: repo, tx: tx}
}

// CancelTrip cancels a scheduled trip; each of its bookings is cancelled
// and owed its fare under trip_cancellation.
func (s *service) CancelTrip(ctx context.Context, tripID int64) (*TripResult, error) {
	return s.closeTrip(ctx, tripID, TripCancelled, ledger.CategoryTripCancellation, true)
}

// MarkTripMissed records a no-show by the service; bookings are owed their
// fare under missed_service.
func (s *service) MarkTripMissed(ctx context.Context, tripID int64) (*TripResult, error) {
	return s.closeTrip(ctx, tripID, TripMissed, ledger.CategoryMissedService, false)
}

func (s *service) closeTrip(ctx context.Context, tripID int64, to TripStatus, reason ledger.Category, cancelBookings bool) (*TripResult, error) {
	if _, err := s.repo.GetTrip(ctx, tripID); err != nil {
		return nil, err
	}

	result := &TripResult{}
	err := s.tx.InTx(ctx, func(tx *sqlx.Tx) error {
		trip, err := s.repo.SetTripStatusTx(ctx, tx, tripID, to)
		if err != nil {
			return err
		}
		n, err := s.repo.FlagTripRefundsTx(ctx, tx, tripID, reason, cancelBookings)
		if err != nil {
			return err
		}
		result.Trip = trip
		result.RefundsFlagged = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTripClosure(string(to))
	logger.Info("trip closed",
		"trip_id", tripID,
		"status", to,
		"refunds_flagged", result.RefundsFlagged,
	)
	return result, nil
}

func (s *service) CancelBooking(ctx context.Context, actor auth.Actor, bookingID int64) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && b.UserID != actor.UserID {
		return nil, ErrNotOwner
	}

	cancelled, err := s.repo.CancelBooking(ctx, bookingID, b.UserID)
	if err != nil {
		return nil, err
	}

	logger.Info("booking cancelled", "booking_id", bookingID, "user_id", b.UserID, "fare", cancelled.Fare)
	return cancelled, nil
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]Booking, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) ListPendingRefunds(ctx context.Context) ([]PendingRefund, error) {
	return s.repo.ListPendingRefunds(ctx)
}

func (s *service) MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, bookingID int64) error {
	return s.repo.MarkRefundedTx(ctx, tx, bookingID)
}
