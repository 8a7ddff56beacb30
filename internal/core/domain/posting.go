package domain

import (
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// PostOptions tune a single ledger mutation.
type PostOptions struct {
	// SkipBalanceUpdate writes the ledger row without touching balances.
	// Only bulk import paths that reconcile afterwards may set it.
	SkipBalanceUpdate bool
}

type PostOption func(*PostOptions)

// SkipBalanceUpdate disables the balance effect of a mutation.
func SkipBalanceUpdate() PostOption {
	return func(o *PostOptions) { o.SkipBalanceUpdate = true }
}

// ApplyPostOptions folds opts into a PostOptions value.
func ApplyPostOptions(opts ...PostOption) PostOptions {
	var o PostOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DebtPaymentInput describes money a client pays into a cash register
// against an outstanding debt.
type DebtPaymentInput struct {
	ClientID   string          `json:"clientID" validate:"required"`
	CashID     string          `json:"cashID" validate:"required"`
	OrigAmount decimal.Decimal `json:"origAmount"`
	CurrencyID string          `json:"currencyID" validate:"required"`
	Source     SourceRef       `json:"source"`
	CategoryID *string         `json:"categoryID,omitempty"`
	ProjectID  *string         `json:"projectID,omitempty"`
	UserID     string          `json:"userID" validate:"required"`
	Note       string          `json:"note" validate:"max=1000"`
	Date       time.Time       `json:"date" validate:"required"`
}

// Entries splits the payment into its two independent ledger rows: a debt
// expense lowering the client balance and a cash income raising the register.
func (p DebtPaymentInput) Entries() (debt LedgerEntryInput, cash LedgerEntryInput) {
	clientID, cashID := p.ClientID, p.CashID
	base := LedgerEntryInput{
		OrigAmount: p.OrigAmount,
		CurrencyID: p.CurrencyID,
		ClientID:   &clientID,
		Source:     p.Source,
		CategoryID: p.CategoryID,
		ProjectID:  p.ProjectID,
		UserID:     p.UserID,
		Note:       p.Note,
		Date:       p.Date,
	}
	debt = base
	debt.Type = Expense
	debt.IsDebt = true

	cash = base
	cash.Type = Income
	cash.IsDebt = false
	cash.CashID = &cashID
	return debt, cash
}

// Validate checks the payment and both rows it produces.
func (p DebtPaymentInput) Validate() error {
	if err := validate.Struct(p); err != nil {
		return validationError(err)
	}
	if !p.OrigAmount.IsPositive() {
		return apperrors.NewValidationError("payment amount must be positive")
	}
	debt, cash := p.Entries()
	if err := debt.Validate(); err != nil {
		return err
	}
	return cash.Validate()
}
