package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/auth"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/metrics"
)

type Service interface {
	Cancel(ctx context.Context, id int64, actor auth.Actor) (*Subscription, error)
	ListForUser(ctx context.Context, userID int64) ([]Subscription, error)
	PendingRefunds(ctx context.Context) ([]Refund, error)
	SettleTx(ctx context.Context, tx *sqlx.Tx, refund Refund) error
	ExpireDue(ctx context.Context) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

// Cancel requests cancellation. A pending cancellation is returned as is;
// cancelled or expired subscriptions yield ErrAlreadyTerminal.
func (s *service) Cancel(ctx context.Context, id int64, actor auth.Actor) (*Subscription, error) {
	sub, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && sub.UserID != actor.UserID {
		return nil, ErrNotOwner
	}

	switch {
	case sub.Status == StatusPendingCancellation:
		return sub, nil
	case sub.Status.IsTerminal():
		return nil, terminal(sub)
	}

	updated, err := s.repo.RequestCancellation(ctx, id, s.now())
	if errors.Is(err, errNotActive) {
		// Lost a race with another cancel or the expiry job.
		current, getErr := s.repo.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == StatusPendingCancellation {
			return current, nil
		}
		return nil, terminal(current)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordSubscriptionCancellation()
	logger.Info("subscription cancellation requested",
		"subscription_id", id,
		"user_id", updated.UserID,
		"actor_id", actor.UserID,
	)
	return updated, nil
}

func terminal(sub *Subscription) error {
	return ErrAlreadyTerminal.WithDetails(map[string]any{
		"subscription_id": sub.ID,
		"status":          sub.Status,
	})
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]Subscription, error) {
	return s.repo.ListForUser(ctx, userID)
}

// PendingRefunds prorates every pending cancellation. Reads only.
func (s *service) PendingRefunds(ctx context.Context) ([]Refund, error) {
	subs, err := s.repo.ListPendingCancellation(ctx)
	if err != nil {
		return nil, err
	}
	refunds := make([]Refund, 0, len(subs))
	for _, sub := range subs {
		refunds = append(refunds, ComputeRefund(sub))
	}
	return refunds, nil
}

func (s *service) SettleTx(ctx context.Context, tx *sqlx.Tx, refund Refund) error {
	return s.repo.SettleTx(ctx, tx, refund.SubscriptionID, refund.Amount)
}

func (s *service) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info("subscriptions expired", "count", n)
	}
	return n, nil
}
