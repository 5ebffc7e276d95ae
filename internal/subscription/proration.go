package subscription

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

const day = 24 * time.Hour

// RemainingDays counts whole days from the cancellation date to the end of
// the billing cycle, clamped to [0, billing_cycle_days].
func RemainingDays(s Subscription, cancelledAt time.Time) int {
	if s.BillingCycleDays <= 0 {
		return 0
	}
	remaining := int(s.PeriodEnd().Sub(cancelledAt) / day)
	if remaining < 0 {
		return 0
	}
	if remaining > s.BillingCycleDays {
		return s.BillingCycleDays
	}
	return remaining
}

// ComputeRefund prorates the net fee over the unused part of the cycle:
// round_half_up((base_fee - discount) * remaining / cycle, 2), never
// negative.
func ComputeRefund(s Subscription) Refund {
	cancelledAt := s.CurrentPeriodStart
	if s.CancellationDate != nil {
		cancelledAt = *s.CancellationDate
	}

	r := Refund{
		SubscriptionID:   s.ID,
		UserID:           s.UserID,
		CancellationDate: cancelledAt,
		DailyRate:        money.Zero,
		Amount:           money.Zero,
	}
	if s.BillingCycleDays <= 0 {
		return r
	}

	net := s.BaseFee.Sub(s.Discount)
	if !net.IsPositive() {
		return r
	}

	cycle := decimal.NewFromInt(int64(s.BillingCycleDays))
	r.RemainingDays = RemainingDays(s, cancelledAt)
	r.DailyRate = money.Round(net.Decimal.Div(cycle))
	r.Amount = money.Round(net.Decimal.Mul(decimal.NewFromInt(int64(r.RemainingDays))).Div(cycle))
	return r
}
