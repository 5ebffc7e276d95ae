package refund

import (
	"time"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
)

// TripGroup collects the per-passenger refunds of one trip.
type TripGroup struct {
	TripID      int64                   `json:"trip_id"`
	RouteName   string                  `json:"route_name"`
	DepartureAt time.Time               `json:"departure_at"`
	Refunds     []booking.PendingRefund `json:"refunds"`
	Total       money.Amount            `json:"total"`
	UserCount   int                     `json:"user_count"`
}

type Totals struct {
	TripRefunds         int          `json:"trip_refunds"`
	TripAmount          money.Amount `json:"trip_amount"`
	SubscriptionRefunds int          `json:"subscription_refunds"`
	SubscriptionAmount  money.Amount `json:"subscription_amount"`
	Count               int          `json:"count"`
	Amount              money.Amount `json:"amount"`
}

// Pending is everything a batch would settle if run now.
type Pending struct {
	TripRefunds         []booking.PendingRefund `json:"trip_refunds"`
	TripGroups          []TripGroup             `json:"trip_groups"`
	SubscriptionRefunds []subscription.Refund   `json:"subscription_refunds"`
	Totals              Totals                  `json:"totals"`
}

type BatchResult struct {
	BatchID              string       `json:"batch_id"`
	Processed            int          `json:"processed"`
	Failed               int          `json:"failed"`
	Skipped              int          `json:"skipped"`
	SettledWithoutCredit int          `json:"settled_without_credit"`
	TotalAmount          money.Amount `json:"total_amount"`
}

type outcome string

const (
	outcomeProcessed outcome = "processed"
	outcomeSkipped   outcome = "skipped"
	outcomeFailed    outcome = "failed"
	outcomeSettled   outcome = "settled_without_credit"
)

// candidate is one refund source reduced to what settlement needs.
type candidate struct {
	ref         ledger.Reference
	userID      int64
	amount      money.Amount
	category    ledger.Category
	reason      string
	description string
	settle      settleFunc
}

// groupTrips groups refunds by trip in order of first appearance.
func groupTrips(refunds []booking.PendingRefund) []TripGroup {
	groups := []TripGroup{}
	index := map[int64]int{}
	users := map[int64]map[int64]bool{}

	for _, r := range refunds {
		i, ok := index[r.TripID]
		if !ok {
			i = len(groups)
			index[r.TripID] = i
			users[r.TripID] = map[int64]bool{}
			groups = append(groups, TripGroup{
				TripID:      r.TripID,
				RouteName:   r.RouteName,
				DepartureAt: r.DepartureAt,
				Total:       money.Zero,
			})
		}
		g := &groups[i]
		g.Refunds = append(g.Refunds, r)
		g.Total = g.Total.Add(r.Amount)
		users[r.TripID][r.UserID] = true
		g.UserCount = len(users[r.TripID])
	}
	return groups
}
