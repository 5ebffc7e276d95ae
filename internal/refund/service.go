package refund

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/booking"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/config"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/metrics"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/subscription"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

type BookingSource interface {
	ListPendingRefunds(ctx context.Context) ([]booking.PendingRefund, error)
	MarkRefundedTx(ctx context.Context, tx *sqlx.Tx, bookingID int64) error
}

type SubscriptionSource interface {
	PendingRefunds(ctx context.Context) ([]subscription.Refund, error)
	SettleTx(ctx context.Context, tx *sqlx.Tx, refund subscription.Refund) error
}

type Wallets interface {
	GetOrCreateWalletTx(ctx context.Context, tx *sqlx.Tx, userID int64) (*wallet.Wallet, error)
	ApplyDeltaTx(ctx context.Context, tx *sqlx.Tx, d wallet.Delta) (*wallet.Result, error)
}

type Ledger interface {
	History(ctx context.Context, f ledger.HistoryFilter) ([]ledger.HistoryItem, error)
	Stats(ctx context.Context, from, to *time.Time) (*ledger.Stats, error)
}

type Notifier interface {
	NotifyRefund(ctx context.Context, userID int64, category ledger.Category, amount, balance money.Amount) error
}

type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type Deps struct {
	Bookings      BookingSource
	Subscriptions SubscriptionSource
	Wallets       Wallets
	Ledger        Ledger
	Tx            TxRunner
	Lock          Locker
	Notifier      Notifier
}

type Service interface {
	ListPending(ctx context.Context) (*Pending, error)
	ProcessAll(ctx context.Context) (*BatchResult, error)
	History(ctx context.Context, f ledger.HistoryFilter) ([]ledger.HistoryItem, error)
	Stats(ctx context.Context, from, to *time.Time) (*ledger.Stats, error)
}

type settleFunc func(ctx context.Context, tx *sqlx.Tx) error

type service struct {
	Deps
	concurrency int
	timeout     time.Duration
	newBatchID  func() string
}

func NewService(d Deps, cfg config.RefundConfig) Service {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &service{
		Deps:        d,
		concurrency: concurrency,
		timeout:     cfg.CandidateTimeout,
		newBatchID:  uuid.NewString,
	}
}

// ListPending reads every refund source without changing anything.
func (s *service) ListPending(ctx context.Context) (*Pending, error) {
	trips, err := s.Bookings.ListPendingRefunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending trip refunds: %w", err)
	}
	subs, err := s.Subscriptions.PendingRefunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending subscription refunds: %w", err)
	}

	p := &Pending{
		TripRefunds:         trips,
		TripGroups:          groupTrips(trips),
		SubscriptionRefunds: subs,
		Totals: Totals{
			TripRefunds:         len(trips),
			TripAmount:          money.Zero,
			SubscriptionRefunds: len(subs),
			SubscriptionAmount:  money.Zero,
		},
	}
	for _, t := range trips {
		p.Totals.TripAmount = p.Totals.TripAmount.Add(t.Amount)
	}
	for _, r := range subs {
		p.Totals.SubscriptionAmount = p.Totals.SubscriptionAmount.Add(r.Amount)
	}
	p.Totals.Count = p.Totals.TripRefunds + p.Totals.SubscriptionRefunds
	p.Totals.Amount = p.Totals.TripAmount.Add(p.Totals.SubscriptionAmount)
	return p, nil
}

// ProcessAll credits every pending refund. Candidates settle independently:
// one failing never stops the others, and a source that is no longer
// pending is skipped rather than credited twice.
func (s *service) ProcessAll(ctx context.Context) (*BatchResult, error) {
	release, err := s.Lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrBatchRunning) {
			metrics.RecordRefundBatch("locked", 0)
		}
		return nil, err
	}
	defer release()

	started := time.Now()
	batchID := s.newBatchID()
	log := logger.With("batch_id", batchID)

	pending, err := s.ListPending(ctx)
	if err != nil {
		metrics.RecordRefundBatch("error", 0)
		return nil, err
	}
	candidates := s.candidates(pending, batchID)
	log.Infow("refund batch started", "candidates", len(candidates))

	outcomes := make([]outcome, len(candidates))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			outcomes[i] = s.process(ctx, log, c)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{BatchID: batchID, TotalAmount: money.Zero}
	for i, o := range outcomes {
		switch o {
		case outcomeProcessed:
			result.Processed++
			result.TotalAmount = result.TotalAmount.Add(candidates[i].amount)
		case outcomeSkipped:
			result.Skipped++
		case outcomeSettled:
			result.SettledWithoutCredit++
		default:
			result.Failed++
		}
	}

	metrics.RecordRefundBatch("completed", time.Since(started).Seconds())
	log.Infow("refund batch finished",
		"processed", result.Processed,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"settled_without_credit", result.SettledWithoutCredit,
		"total_amount", result.TotalAmount.String(),
	)
	return result, nil
}

func (s *service) candidates(p *Pending, batchID string) []candidate {
	out := make([]candidate, 0, p.Totals.Count)
	description := "refund batch " + batchID

	for _, t := range p.TripRefunds {
		bookingID := t.BookingID
		out = append(out, candidate{
			ref:         ledger.Reference{Kind: ledger.RefBooking, ID: bookingID},
			userID:      t.UserID,
			amount:      t.Amount,
			category:    t.Reason,
			reason:      tripReason(t),
			description: description,
			settle: func(ctx context.Context, tx *sqlx.Tx) error {
				return s.Bookings.MarkRefundedTx(ctx, tx, bookingID)
			},
		})
	}
	for _, r := range p.SubscriptionRefunds {
		out = append(out, candidate{
			ref:         ledger.Reference{Kind: ledger.RefSubscription, ID: r.SubscriptionID},
			userID:      r.UserID,
			amount:      r.Amount,
			category:    ledger.CategorySubscriptionCancellation,
			reason:      fmt.Sprintf("Subscription #%d cancelled with %d unused days", r.SubscriptionID, r.RemainingDays),
			description: description,
			settle: func(ctx context.Context, tx *sqlx.Tx) error {
				return s.Subscriptions.SettleTx(ctx, tx, r)
			},
		})
	}
	return out
}

func tripReason(t booking.PendingRefund) string {
	when := t.DepartureAt.Format("2006-01-02 15:04")
	if t.Reason == ledger.CategoryMissedService {
		return fmt.Sprintf("Missed service: %s trip #%d at %s", t.RouteName, t.TripID, when)
	}
	return fmt.Sprintf("Trip cancelled: %s trip #%d at %s", t.RouteName, t.TripID, when)
}

// process settles one candidate in its own transaction: mark the source
// settled, then credit the wallet. A zero amount settles without a credit.
func (s *service) process(ctx context.Context, log *zap.SugaredLogger, c candidate) outcome {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var res *wallet.Result
	err := s.Tx.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := c.settle(ctx, tx); err != nil {
			return err
		}
		if !c.amount.IsPositive() {
			return nil
		}
		w, err := s.Wallets.GetOrCreateWalletTx(ctx, tx, c.userID)
		if err != nil {
			return err
		}
		res, err = s.Wallets.ApplyDeltaTx(ctx, tx, wallet.Delta{
			WalletID:    w.ID,
			Amount:      c.amount,
			Category:    c.category,
			Reason:      c.reason,
			Description: c.description,
			Ref:         &c.ref,
		})
		return err
	})

	fields := []interface{}{
		"ref_type", c.ref.Kind,
		"ref_id", c.ref.ID,
		"user_id", c.userID,
		"category", c.category,
		"amount", c.amount.String(),
	}
	switch {
	case err == nil && res == nil:
		metrics.RecordRefund(string(c.category), string(outcomeSettled), 0)
		log.Infow("refund settled without credit", fields...)
		return outcomeSettled
	case err == nil:
		metrics.RecordRefund(string(c.category), string(outcomeProcessed), c.amount.InexactFloat64())
		log.Infow("refund credited", fields...)
		s.notify(ctx, log, c, res.Wallet.Balance)
		return outcomeProcessed
	case apperr.HasCode(err, apperr.CodeAlreadyTerminal):
		metrics.RecordRefund(string(c.category), string(outcomeSkipped), 0)
		log.Infow("refund already settled", fields...)
		return outcomeSkipped
	default:
		metrics.RecordRefund(string(c.category), string(outcomeFailed), 0)
		log.Errorw("refund failed", append(fields, "error", err)...)
		return outcomeFailed
	}
}

func (s *service) notify(ctx context.Context, log *zap.SugaredLogger, c candidate, balance money.Amount) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.NotifyRefund(ctx, c.userID, c.category, c.amount, balance); err != nil {
		log.Warnw("refund notification not queued", "user_id", c.userID, "error", err)
	}
}

func (s *service) History(ctx context.Context, f ledger.HistoryFilter) ([]ledger.HistoryItem, error) {
	return s.Ledger.History(ctx, f)
}

func (s *service) Stats(ctx context.Context, from, to *time.Time) (*ledger.Stats, error) {
	return s.Ledger.Stats(ctx, from, to)
}
