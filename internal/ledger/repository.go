package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

var ErrInvalidEntry = errors.New("invalid ledger entry")

const transactionColumns = `id, wallet_id, user_id, type, amount, category, reason, description,
		balance_after, status, ref_type, ref_id, created_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Append inserts one transaction row. q must be the transaction that
// updated the wallet balance; the ledger is never written on its own.
func (r *Repository) Append(ctx context.Context, q sqlx.QueryerContext, e Entry) (*Transaction, error) {
	if e.WalletID == 0 || e.UserID == 0 {
		return nil, fmt.Errorf("%w: wallet and user are required", ErrInvalidEntry)
	}
	if !e.Category.IsValid() {
		return nil, fmt.Errorf("%w: category %q", ErrInvalidEntry, e.Category)
	}
	if strings.TrimSpace(e.Reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", ErrInvalidEntry)
	}

	txType := TypeCredit
	amount := e.Amount
	if amount.IsNegative() {
		txType = TypeDebit
		amount = amount.Neg()
	}

	var refType sql.NullString
	var refID sql.NullInt64
	if e.Ref != nil {
		refType = sql.NullString{String: string(e.Ref.Kind), Valid: true}
		refID = sql.NullInt64{Int64: e.Ref.ID, Valid: true}
	}
	description := sql.NullString{String: e.Description, Valid: e.Description != ""}

	t := &Transaction{}
	err := sqlx.GetContext(ctx, q, t, `
		INSERT INTO wallet_transactions
			(wallet_id, user_id, type, amount, category, reason, description, balance_after, status, ref_type, ref_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+transactionColumns,
		e.WalletID, e.UserID, txType, amount, e.Category, e.Reason, description,
		e.BalanceAfter, StatusCompleted, refType, refID,
	)
	if err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListByWallet(ctx context.Context, walletID int64, page Page) ([]Transaction, error) {
	page = page.Normalize()
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, walletID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64, page Page) ([]Transaction, error) {
	page = page.Normalize()
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// ListChronological returns every transaction of a wallet, oldest first.
func (r *Repository) ListChronological(ctx context.Context, walletID int64) ([]Transaction, error) {
	txs := []Transaction{}
	err := r.db.SelectContext(ctx, &txs, `
		SELECT `+transactionColumns+`
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at ASC, id ASC
	`, walletID)
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// History lists refund-category transactions, newest first.
func (r *Repository) History(ctx context.Context, f HistoryFilter) ([]HistoryItem, error) {
	page := f.Page.Normalize()
	where, args := refundWhere(f.From, f.To, f.UserID, f.Category)
	args = append(args, page.Limit, page.Offset)

	query := fmt.Sprintf(`
		SELECT t.id, t.wallet_id, t.user_id, t.type, t.amount, t.category, t.reason, t.description,
		       t.balance_after, t.status, t.ref_type, t.ref_id, t.created_at,
		       u.name AS user_name, u.email AS user_email
		FROM wallet_transactions t
		JOIN users u ON u.id = t.user_id
		WHERE %s
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	items := []HistoryItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// Stats aggregates refund-category credits by category and by month.
func (r *Repository) Stats(ctx context.Context, from, to *time.Time) (*Stats, error) {
	where, args := refundWhere(from, to, nil, nil)

	stats := &Stats{ByCategory: []CategoryTotal{}, ByMonth: []MonthTotal{}, Total: money.Zero}

	err := r.db.SelectContext(ctx, &stats.ByCategory, fmt.Sprintf(`
		SELECT t.category, COUNT(*) AS count, COALESCE(SUM(t.amount), 0) AS total
		FROM wallet_transactions t
		WHERE %s
		GROUP BY t.category
		ORDER BY t.category
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("refund stats by category: %w", err)
	}

	err = r.db.SelectContext(ctx, &stats.ByMonth, fmt.Sprintf(`
		SELECT to_char(date_trunc('month', t.created_at), 'YYYY-MM') AS month,
		       COUNT(*) AS count, COALESCE(SUM(t.amount), 0) AS total
		FROM wallet_transactions t
		WHERE %s
		GROUP BY 1
		ORDER BY 1
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("refund stats by month: %w", err)
	}

	for _, c := range stats.ByCategory {
		stats.Count += c.Count
		stats.Total = stats.Total.Add(c.Total)
	}
	return stats, nil
}

func refundWhere(from, to *time.Time, userID *int64, category *Category) (string, []interface{}) {
	categories := RefundCategories()
	if category != nil {
		categories = []Category{*category}
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	clauses := []string{"t.category = ANY($1)"}
	args := []interface{}{pq.Array(names)}

	if from != nil {
		args = append(args, *from)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		clauses = append(clauses, fmt.Sprintf("t.created_at < $%d", len(args)))
	}
	if userID != nil {
		args = append(args, *userID)
		clauses = append(clauses, fmt.Sprintf("t.user_id = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}
