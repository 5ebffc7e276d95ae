package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/apperr"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/db"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

var (
	ErrWalletNotFound    = apperr.New(apperr.CodeNotFound, "wallet not found")
	ErrInsufficientFunds = apperr.New(apperr.CodeInsufficientFunds, "insufficient funds")
	ErrNothingToReset    = apperr.New(apperr.CodeValidation, "wallet balance is already zero")
	ErrZeroDelta         = apperr.New(apperr.CodeValidation, "amount must not be zero")
	ErrBalanceTooLarge   = apperr.New(apperr.CodeValidation, "resulting balance exceeds the wallet limit")
)

const walletColumns = `id, user_id, balance, currency, created_at, updated_at`

type repository struct {
	db     *sqlx.DB
	ledger *ledger.Repository
}

func NewRepository(conn *sqlx.DB, l *ledger.Repository) Repository {
	return &repository{db: conn, ledger: l}
}

func (r *repository) GetOrCreateWallet(ctx context.Context, userID int64) (*Wallet, error) {
	return getOrCreate(ctx, r.db, userID)
}

func (r *repository) GetOrCreateWalletTx(ctx context.Context, tx *sqlx.Tx, userID int64) (*Wallet, error) {
	return getOrCreate(ctx, tx, userID)
}

// getOrCreate never produces two wallets for one user: concurrent inserts
// collapse on the user_id unique key.
func getOrCreate(ctx context.Context, q sqlx.ExtContext, userID int64) (*Wallet, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("create wallet for user %d: %w", userID, err)
	}

	w := &Wallet{}
	if err := sqlx.GetContext(ctx, q, w,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("load wallet for user %d: %w", userID, err)
	}
	return w, nil
}

func (r *repository) GetWallet(ctx context.Context, walletID int64) (*Wallet, error) {
	w := &Wallet{}
	err := r.db.GetContext(ctx, w, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *repository) ApplyDelta(ctx context.Context, d Delta) (*Result, error) {
	var res *Result
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		res, err = r.ApplyDeltaTx(ctx, tx, d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyDeltaTx locks the wallet row, moves the balance and appends the
// ledger row, all on tx. Nothing is written when the result would be
// negative.
func (r *repository) ApplyDeltaTx(ctx context.Context, tx *sqlx.Tx, d Delta) (*Result, error) {
	w := &Wallet{}
	err := tx.GetContext(ctx, w,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`,
		d.WalletID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock wallet %d: %w", d.WalletID, err)
	}

	amount := d.Amount
	if d.Drain {
		if w.Balance.IsZero() {
			return nil, ErrNothingToReset
		}
		amount = w.Balance.Neg()
	}
	if amount.IsZero() {
		return nil, ErrZeroDelta
	}

	newBalance := w.Balance.Add(amount)
	if newBalance.IsNegative() {
		return nil, ErrInsufficientFunds.WithDetails(InsufficientFundsDetails{
			Attempted: amount,
			Available: w.Balance,
		})
	}
	if newBalance.GreaterThan(money.Max.Decimal) {
		return nil, ErrBalanceTooLarge.WithDetails(map[string]money.Amount{
			"attempted": amount,
			"available": w.Balance,
			"limit":     money.Max,
		})
	}

	err = tx.QueryRowxContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
		newBalance, w.ID,
	).Scan(&w.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update wallet %d balance: %w", w.ID, err)
	}
	w.Balance = newBalance

	t, err := r.ledger.Append(ctx, tx, ledger.Entry{
		WalletID:     w.ID,
		UserID:       w.UserID,
		Amount:       amount,
		Category:     d.Category,
		Reason:       d.Reason,
		Description:  d.Description,
		Ref:          d.Ref,
		BalanceAfter: newBalance,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidEntry) {
			return nil, apperr.Wrap(apperr.CodeValidation, err, err.Error())
		}
		return nil, err
	}

	return &Result{Wallet: w, Transaction: t}, nil
}

func (r *repository) ListWithOwners(ctx context.Context) ([]Summary, error) {
	items := []Summary{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT w.id, w.user_id, w.balance, w.currency, w.created_at, w.updated_at,
		       u.name AS user_name, u.email AS user_email, u.phone AS user_phone,
		       COUNT(t.id) AS transaction_count,
		       MAX(t.created_at) AS last_transaction_at
		FROM wallets w
		JOIN users u ON u.id = w.user_id
		LEFT JOIN wallet_transactions t ON t.wallet_id = w.id
		GROUP BY w.id, u.id
		ORDER BY w.id
	`)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListTransactions(ctx context.Context, walletID int64, page ledger.Page) ([]ledger.Transaction, error) {
	ok, err := db.Exists(ctx, r.db, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, walletID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWalletNotFound
	}
	return r.ledger.ListByWallet(ctx, walletID, page)
}

func (r *repository) ListUserTransactions(ctx context.Context, userID int64, page ledger.Page) ([]ledger.Transaction, error) {
	return r.ledger.ListByUser(ctx, userID, page)
}

// Reconcile replays the wallet's ledger from zero and compares the result
// with the stored balance.
func (r *repository) Reconcile(ctx context.Context, walletID int64) (*Reconciliation, error) {
	w, err := r.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	txs, err := r.ledger.ListChronological(ctx, walletID)
	if err != nil {
		return nil, fmt.Errorf("load ledger for wallet %d: %w", walletID, err)
	}

	rec := &Reconciliation{
		WalletID:         walletID,
		StoredBalance:    w.Balance,
		TransactionCount: len(txs),
	}

	replayed, err := ledger.Replay(txs)
	rec.LedgerBalance = replayed
	switch {
	case err != nil:
		rec.Problem = err.Error()
	case !replayed.Equal(w.Balance):
		rec.Problem = fmt.Sprintf("stored balance %s differs from ledger %s", w.Balance, replayed)
	default:
		rec.Consistent = true
	}
	return rec, nil
}
