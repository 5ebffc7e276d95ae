package subscription

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Subscription, error)
	ListForUser(ctx context.Context, userID int64) ([]Subscription, error)
	RequestCancellation(ctx context.Context, id int64, at time.Time) (*Subscription, error)
	ListPendingCancellation(ctx context.Context) ([]Subscription, error)
	SettleTx(ctx context.Context, tx *sqlx.Tx, id int64, amount money.Amount) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
