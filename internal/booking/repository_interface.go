package booking

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
)

type Repository interface {
	GetTrip(ctx context.Context, id int64) (*Trip, error)
	GetBooking(ctx context.Context, id int64) (*Booking, error)
	ListForUser(ctx context.Context, userID int64) ([]Booking, error)
	SetTripStatusTx(ctx context.Context, tx *sqlx.Tx, tripID int64, to TripStatus) (*Trip, error)
	FlagTripRefundsTx(ctx context.Context, tx *sqlx.Tx, tripID int64, reason ledger.Category, cancel bool) (int64, error)
	CancelBooking(ctx context.Context, bookingID, userID int64) (*Booking, error)
	ListPendingRefunds(ctx context.Context) ([]PendingRefund, error)
	MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, bookingID int64) error
}
