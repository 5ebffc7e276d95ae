// Package adjustment lets operators move wallet balances by hand. Every
// change is reason-logged and attributed to the acting admin.
package adjustment

import (
	"context"
	"errors"
	"strings"

	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/ledger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/logger"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/metrics"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/money"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/validation"
	"github.com/ramadandelights-sys/OfficeXpress-v2-sub002/internal/wallet"
)

type Type string

const (
	TypeCredit Type = "credit"
	TypeDebit  Type = "debit"
)

type AdjustInput struct {
	WalletID    int64        `json:"-"`
	Type        Type         `json:"type" validate:"required,oneof=credit debit"`
	Amount      money.Amount `json:"amount"`
	Reason      string       `json:"reason" validate:"required,min=5,max=500"`
	Description string       `json:"description" validate:"max=1000"`
	AdminUserID int64        `json:"-"`
}

type ResetInput struct {
	WalletID    int64  `json:"-"`
	Reason      string `json:"reason" validate:"required,min=5,max=500"`
	AdminUserID int64  `json:"-"`
}

type Wallets interface {
	ApplyDelta(ctx context.Context, d wallet.Delta) (*wallet.Result, error)
}

type Notifier interface {
	NotifyAdjustment(ctx context.Context, userID int64, amount, balance money.Amount, reason string) error
}

type Service interface {
	Adjust(ctx context.Context, in AdjustInput) (*wallet.Result, error)
	Reset(ctx context.Context, in ResetInput) (*wallet.Result, error)
}

type service struct {
	wallets  Wallets
	notifier Notifier
}

func NewService(wallets Wallets, notifier Notifier) Service {
	return &service{wallets: wallets, notifier: notifier}
}

// Adjust credits or debits a wallet. Nothing is written when validation
// fails or the debit would overdraw the wallet.
func (s *service) Adjust(ctx context.Context, in AdjustInput) (*wallet.Result, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}

	amount := in.Amount
	if in.Type == TypeDebit {
		amount = amount.Neg()
	}

	res, err := s.wallets.ApplyDelta(ctx, wallet.Delta{
		WalletID:    in.WalletID,
		Amount:      amount,
		Category:    ledger.CategoryAdminAdjustment,
		Reason:      in.Reason,
		Description: in.Description,
		Ref:         ledger.AdminRef(in.AdminUserID),
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAdjustment(string(in.Type))
	logger.Info("wallet adjusted",
		"wallet_id", in.WalletID,
		"admin_id", in.AdminUserID,
		"type", in.Type,
		"amount", in.Amount.String(),
		"balance_after", res.Wallet.Balance.String(),
	)
	s.notify(ctx, res, amount, in.Reason)
	return res, nil
}

// Reset debits the whole balance. An already empty wallet is rejected.
func (s *service) Reset(ctx context.Context, in ResetInput) (*wallet.Result, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	res, err := s.wallets.ApplyDelta(ctx, wallet.Delta{
		WalletID: in.WalletID,
		Drain:    true,
		Category: ledger.CategoryAdminReset,
		Reason:   in.Reason,
		Ref:      ledger.AdminRef(in.AdminUserID),
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordAdjustment("reset")
	logger.Info("wallet reset",
		"wallet_id", in.WalletID,
		"admin_id", in.AdminUserID,
		"drained", res.Transaction.Amount.String(),
	)
	s.notify(ctx, res, res.Transaction.Signed(), in.Reason)
	return res, nil
}

func (s *service) notify(ctx context.Context, res *wallet.Result, amount money.Amount, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAdjustment(ctx, res.Wallet.UserID, amount, res.Wallet.Balance, reason); err != nil {
		logger.Warn("adjustment notification not queued", "user_id", res.Wallet.UserID, "error", err)
	}
}

func checkAmount(a money.Amount) error {
	err := a.ValidatePositive()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, money.ErrTooManyDecimals):
		return validation.Failed("amount must have at most 2 decimal places",
			validation.FieldError{Field: "amount", Tag: "decimals", Message: err.Error()})
	case errors.Is(err, money.ErrTooLarge):
		return validation.Failed("amount is too large",
			validation.FieldError{Field: "amount", Tag: "max", Message: err.Error()})
	default:
		return validation.Failed("amount must be greater than 0",
			validation.FieldError{Field: "amount", Tag: "gt", Message: err.Error()})
	}
}
