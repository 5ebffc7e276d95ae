package ledger

import (
	"fmt"
	"time"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
)

type Type string

const (
	TypeCredit Type = "credit"
	TypeDebit  Type = "debit"
)

func (t Type) IsValid() bool {
	return t == TypeCredit || t == TypeDebit
}

// Category is why a balance changed. Stored verbatim in wallet_transactions.
type Category string

const (
	CategoryTripCancellation         Category = "trip_cancellation"
	CategoryMissedService            Category = "missed_service"
	CategorySubscriptionCancellation Category = "subscription_cancellation"
	CategoryAdminAdjustment          Category = "admin_adjustment"
	CategoryAdminReset               Category = "admin_reset"
)

var validCategories = []Category{
	CategoryTripCancellation,
	CategoryMissedService,
	CategorySubscriptionCancellation,
	CategoryAdminAdjustment,
	CategoryAdminReset,
}

var refundCategories = []Category{
	CategoryTripCancellation,
	CategoryMissedService,
	CategorySubscriptionCancellation,
}

func (c Category) IsValid() bool {
	for _, candidate := range validCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

func (c Category) IsRefund() bool {
	for _, candidate := range refundCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// RefundCategories returns a fresh slice of the refund categories.
func RefundCategories() []Category {
	out := make([]Category, len(refundCategories))
	copy(out, refundCategories)
	return out
}

func ParseCategory(value string) (Category, error) {
	for _, candidate := range validCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction category %q", value)
}

// RefKind names the entity that caused a transaction.
type RefKind string

const (
	RefAdmin        RefKind = "admin"
	RefBooking      RefKind = "booking"
	RefSubscription RefKind = "subscription"
	RefTrip         RefKind = "trip"
)

type Reference struct {
	Kind RefKind
	ID   int64
}

func AdminRef(adminUserID int64) *Reference {
	return &Reference{Kind: RefAdmin, ID: adminUserID}
}

const StatusCompleted = "completed"

// Transaction is one immutable ledger row.
type Transaction struct {
	ID           int64        `db:"id" json:"id"`
	WalletID     int64        `db:"wallet_id" json:"wallet_id"`
	UserID       int64        `db:"user_id" json:"user_id"`
	Type         Type         `db:"type" json:"type"`
	Amount       money.Amount `db:"amount" json:"amount"`
	Category     Category     `db:"category" json:"category"`
	Reason       string       `db:"reason" json:"reason"`
	Description  *string      `db:"description" json:"description,omitempty"`
	BalanceAfter money.Amount `db:"balance_after" json:"balance_after"`
	Status       string       `db:"status" json:"status"`
	RefType      *RefKind     `db:"ref_type" json:"ref_type,omitempty"`
	RefID        *int64       `db:"ref_id" json:"ref_id,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// Signed returns the amount with the sign implied by the type.
func (t Transaction) Signed() money.Amount {
	if t.Type == TypeDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Entry is what a wallet mutation asks the ledger to record.
type Entry struct {
	WalletID     int64
	UserID       int64
	Amount       money.Amount // signed
	Category     Category
	Reason       string
	Description  string
	Ref          *Reference
	BalanceAfter money.Amount
}

// HistoryItem is a refund-category transaction with its owner.
type HistoryItem struct {
	Transaction
	UserName  string `db:"user_name" json:"user_name"`
	UserEmail string `db:"user_email" json:"user_email"`
}

type HistoryFilter struct {
	From     *time.Time
	To       *time.Time
	UserID   *int64
	Category *Category
	Page     Page
}

type CategoryTotal struct {
	Category Category     `db:"category" json:"category"`
	Count    int64        `db:"count" json:"count"`
	Total    money.Amount `db:"total" json:"total"`
}

type MonthTotal struct {
	Month string       `db:"month" json:"month"`
	Count int64        `db:"count" json:"count"`
	Total money.Amount `db:"total" json:"total"`
}

type Stats struct {
	ByCategory []CategoryTotal `json:"by_reason"`
	ByMonth    []MonthTotal    `json:"by_month"`
	Count      int64           `json:"count"`
	Total      money.Amount    `json:"total"`
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
