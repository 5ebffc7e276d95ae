package subscription

import (
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

type Status string

const (
	StatusActive              Status = "active"
	StatusPendingCancellation Status = "pending_cancellation"
	StatusCancelled           Status = "cancelled"
	StatusExpired             Status = "expired"
)

var transitions = map[Status][]Status{
	StatusActive:              {StatusPendingCancellation, StatusExpired},
	StatusPendingCancellation: {StatusCancelled},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusPendingCancellation, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid subscription status %q", value)
	}
	return s, nil
}

var weekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true,
}

// Subscription is a recurring carpool seat on a route and time slot.
type Subscription struct {
	ID                 int64          `db:"id" json:"id"`
	UserID             int64          `db:"user_id" json:"user_id"`
	RouteID            int64          `db:"route_id" json:"route_id"`
	TimeSlotID         int64          `db:"time_slot_id" json:"time_slot_id"`
	Weekdays           pq.StringArray `db:"weekdays" json:"weekdays"`
	BaseFee            money.Amount   `db:"base_fee" json:"base_fee"`
	Discount           money.Amount   `db:"discount" json:"discount"`
	BillingCycleDays   int            `db:"billing_cycle_days" json:"billing_cycle_days"`
	CurrentPeriodStart time.Time      `db:"current_period_start" json:"current_period_start"`
	Status             Status         `db:"status" json:"status"`
	CancellationDate   *time.Time     `db:"cancellation_date" json:"cancellation_date,omitempty"`
	RefundAmount       *money.Amount  `db:"refund_amount" json:"refund_amount,omitempty"`
	SettledAt          *time.Time     `db:"settled_at" json:"settled_at,omitempty"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// PeriodEnd is when the current billing cycle runs out.
func (s Subscription) PeriodEnd() time.Time {
	return s.CurrentPeriodStart.AddDate(0, 0, s.BillingCycleDays)
}

// ValidWeekdays reports whether every stored weekday is a known short name.
func (s Subscription) ValidWeekdays() bool {
	for _, d := range s.Weekdays {
		if !weekdays[d] {
			return false
		}
	}
	return true
}

// Refund is a prorated refund owed on a pending cancellation.
type Refund struct {
	SubscriptionID   int64        `json:"subscription_id"`
	UserID           int64        `json:"user_id"`
	RemainingDays    int          `json:"remaining_days"`
	DailyRate        money.Amount `json:"daily_rate"`
	Amount           money.Amount `json:"amount"`
	CancellationDate time.Time    `json:"cancellation_date"`
}
