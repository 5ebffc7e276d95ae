package booking

import (
	"time"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

type TripStatus string

const (
	TripScheduled TripStatus = "scheduled"
	TripCancelled TripStatus = "cancelled"
	TripMissed    TripStatus = "missed"
	TripCompleted TripStatus = "completed"
)

type Status string

const (
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
)

type RefundStatus string

const (
	RefundNone     RefundStatus = "none"
	RefundPending  RefundStatus = "pending"
	RefundRefunded RefundStatus = "refunded"
)

type Trip struct {
	ID          int64      `db:"id" json:"id"`
	RouteName   string     `db:"route_name" json:"route_name"`
	DepartureAt time.Time  `db:"departure_at" json:"departure_at"`
	Status      TripStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type Booking struct {
	ID           int64            `db:"id" json:"id"`
	TripID       int64            `db:"trip_id" json:"trip_id"`
	UserID       int64            `db:"user_id" json:"user_id"`
	Fare         money.Amount     `db:"fare" json:"fare"`
	Status       Status           `db:"status" json:"status"`
	RefundStatus RefundStatus     `db:"refund_status" json:"refund_status"`
	RefundReason *ledger.Category `db:"refund_reason" json:"refund_reason,omitempty"`
	RefundAmount *money.Amount    `db:"refund_amount" json:"refund_amount,omitempty"`
	RefundedAt   *time.Time       `db:"refunded_at" json:"refunded_at,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// PendingRefund is a booking waiting for its fare to be credited back.
type PendingRefund struct {
	BookingID   int64           `db:"booking_id" json:"booking_id"`
	TripID      int64           `db:"trip_id" json:"trip_id"`
	RouteName   string          `db:"route_name" json:"route_name"`
	DepartureAt time.Time       `db:"departure_at" json:"departure_at"`
	UserID      int64           `db:"user_id" json:"user_id"`
	UserName    string          `db:"user_name" json:"user_name"`
	UserEmail   string          `db:"user_email" json:"user_email"`
	Amount      money.Amount    `db:"amount" json:"amount"`
	Reason      ledger.Category `db:"reason" json:"reason"`
}

type TripResult struct {
	Trip           *Trip `json:"trip"`
	RefundsFlagged int64 `json:"refunds_flagged"`
}
