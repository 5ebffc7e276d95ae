package wallet

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
)

type Repository interface {
	GetOrCreateWallet(ctx context.Context, userID int64) (*Wallet, error)
	GetOrCreateWalletTx(ctx context.Context, tx *sqlx.Tx, userID int64) (*Wallet, error)
	GetWallet(ctx context.Context, walletID int64) (*Wallet, error)
	ApplyDelta(ctx context.Context, d Delta) (*Result, error)
	ApplyDeltaTx(ctx context.Context, tx *sqlx.Tx, d Delta) (*Result, error)
	ListWithOwners(ctx context.Context) ([]Summary, error)
	ListTransactions(ctx context.Context, walletID int64, page ledger.Page) ([]ledger.Transaction, error)
	ListUserTransactions(ctx context.Context, userID int64, page ledger.Page) ([]ledger.Transaction, error)
	Reconcile(ctx context.Context, walletID int64) (*Reconciliation, error)
}
