package wallet

import (
	"time"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

// Wallet is a user's stored balance. One per user, created lazily.
type Wallet struct {
	ID        int64        `db:"id" json:"id"`
	UserID    int64        `db:"user_id" json:"user_id"`
	Balance   money.Amount `db:"balance" json:"balance"`
	Currency  string       `db:"currency" json:"currency"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Summary is a wallet as listed in the admin console.
type Summary struct {
	Wallet
	UserName          string     `db:"user_name" json:"user_name"`
	UserEmail         string     `db:"user_email" json:"user_email"`
	UserPhone         string     `db:"user_phone" json:"user_phone"`
	TransactionCount  int64      `db:"transaction_count" json:"transaction_count"`
	LastTransactionAt *time.Time `db:"last_transaction_at" json:"last_transaction_at"`
}

// Delta is one requested balance change. Amount is signed; when Drain is
// set the whole locked balance is debited and Amount is ignored.
type Delta struct {
	WalletID    int64
	Amount      money.Amount
	Drain       bool
	Category    ledger.Category
	Reason      string
	Description string
	Ref         *ledger.Reference
}

type Result struct {
	Wallet      *Wallet             `json:"wallet"`
	Transaction *ledger.Transaction `json:"transaction"`
}

// Reconciliation compares the stored balance with a replay of the ledger.
type Reconciliation struct {
	WalletID         int64        `json:"wallet_id"`
	StoredBalance    money.Amount `json:"stored_balance"`
	LedgerBalance    money.Amount `json:"ledger_balance"`
	TransactionCount int          `json:"transaction_count"`
	Consistent       bool         `json:"consistent"`
	Problem          string       `json:"problem,omitempty"`
}

type InsufficientFundsDetails struct {
	Attempted money.Amount `json:"attempted"`
	Available money.Amount `json:"available"`
}
