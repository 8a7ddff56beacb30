package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of a ledger entry.
type TransactionType int16

const (
	Expense TransactionType = 0
	Income  TransactionType = 1
)

func (t TransactionType) String() string {
	switch t {
	case Expense:
		return "expense"
	case Income:
		return "income"
	}
	return fmt.Sprintf("TransactionType(%d)", int16(t))
}

// Signed returns amount with the sign this direction contributes to a balance.
func (t TransactionType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Neg()
	}
	return amount
}

// Opposite flips income and expense.
func (t TransactionType) Opposite() TransactionType {
	if t == Income {
		return Expense
	}
	return Income
}

// SourceKind is the closed set of business documents that can produce ledger entries.
type SourceKind string

const (
	SourceOrder           SourceKind = "order"
	SourceSale            SourceKind = "sale"
	SourceReceipt         SourceKind = "receipt"
	SourceTransfer        SourceKind = "transfer"
	SourceSalaryAccrual   SourceKind = "salary_accrual"
	SourceProjectContract SourceKind = "project_contract"
	SourceManual          SourceKind = "manual"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceOrder, SourceSale, SourceReceipt, SourceTransfer,
		SourceSalaryAccrual, SourceProjectContract, SourceManual:
		return true
	}
	return false
}

// RoundingContext maps a source kind to the rounding policy family used for its amounts.
func (k SourceKind) RoundingContext() RoundingContext {
	switch k {
	case SourceOrder:
		return RoundOrders
	case SourceSale:
		return RoundSales
	case SourceReceipt:
		return RoundReceipts
	}
	return RoundTransactions
}

// SourceRef points at the document an entry was produced by.
type SourceRef struct {
	Kind SourceKind `json:"kind" validate:"required"`
	ID   string     `json:"id"` // empty for manual entries
}

func (s SourceRef) String() string {
	if s.ID == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.ID
}

// Transaction is one ledger row. Amount is expressed in the currency of the
// balance bucket it affects: the company default currency for debt rows, the
// cash register's currency otherwise.
type Transaction struct {
	ID         string              `json:"id"`
	CompanyID  string              `json:"companyID"`
	Type       TransactionType     `json:"type"`
	IsDebt     bool                `json:"isDebt"`
	Amount     decimal.Decimal     `json:"amount"`
	OrigAmount decimal.Decimal     `json:"origAmount"`
	CurrencyID string              `json:"currencyID"`
	RepRate    decimal.NullDecimal `json:"repRate"`
	RepAmount  decimal.NullDecimal `json:"repAmount"`
	DefRate    decimal.NullDecimal `json:"defRate"`
	DefAmount  decimal.NullDecimal `json:"defAmount"`
	ClientID   *string             `json:"clientID,omitempty"`
	CashID     *string             `json:"cashID,omitempty"`
	Source     SourceRef           `json:"source"`
	CategoryID *string             `json:"categoryID,omitempty"`
	ProjectID  *string             `json:"projectID,omitempty"`
	UserID     string              `json:"userID"`
	Note       string              `json:"note"`
	Date       time.Time           `json:"date"`
	IsDeleted  bool                `json:"isDeleted"`
	AuditFields
}

// BalanceEffect returns the signed contribution of the row to exactly one
// balance. Deleted rows and rows without a target contribute nothing.
func (t Transaction) BalanceEffect() (BalanceEffect, bool) {
	if t.IsDeleted {
		return BalanceEffect{}, false
	}
	target, ok := t.Target()
	if !ok {
		return BalanceEffect{}, false
	}
	return BalanceEffect{Target: target, Delta: t.Type.Signed(t.Amount)}, true
}

// Target returns the balance bucket the row belongs to.
func (t Transaction) Target() (BalanceTarget, bool) {
	if t.IsDebt {
		if t.ClientID == nil {
			return BalanceTarget{}, false
		}
		return ClientTarget(*t.ClientID), true
	}
	if t.CashID == nil {
		return BalanceTarget{}, false
	}
	return CashTarget(*t.CashID), true
}

// MissingCurrencyFields reports whether any of the derived rate/amount columns are unset.
func (t Transaction) MissingCurrencyFields() bool {
	return !t.RepRate.Valid || !t.RepAmount.Valid || !t.DefRate.Valid || !t.DefAmount.Valid
}

// LedgerEntryInput is the caller-supplied part of a ledger entry. Amount and
// the currency columns are derived on posting.
type LedgerEntryInput struct {
	Type       TransactionType `json:"type" validate:"oneof=0 1"`
	IsDebt     bool            `json:"isDebt"`
	OrigAmount decimal.Decimal `json:"origAmount"`
	CurrencyID string          `json:"currencyID" validate:"required"`
	ClientID   *string         `json:"clientID,omitempty" validate:"required_if=IsDebt true"`
	CashID     *string         `json:"cashID,omitempty" validate:"required_if=IsDebt false,excluded_if=IsDebt true"`
	Source     SourceRef       `json:"source"`
	CategoryID *string         `json:"categoryID,omitempty"`
	ProjectID  *string         `json:"projectID,omitempty"`
	UserID     string          `json:"userID" validate:"required"`
	Note       string          `json:"note" validate:"max=1000"`
	Date       time.Time       `json:"date" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the entry shape. A debt entry needs a client and no cash
// register; any other entry needs a cash register.
func (in LedgerEntryInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return validationError(err)
	}
	if in.OrigAmount.IsNegative() {
		return apperrors.NewValidationError("origAmount must not be negative")
	}
	if !in.Source.Kind.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unknown source kind %q", in.Source.Kind))
	}
	if in.Source.Kind != SourceManual && in.Source.ID == "" {
		return apperrors.NewValidationError("source id is required for " + string(in.Source.Kind) + " entries")
	}
	if in.IsDebt && strings.TrimSpace(*in.ClientID) == "" {
		return apperrors.NewValidationError("clientID is required for debt entries")
	}
	if !in.IsDebt && strings.TrimSpace(*in.CashID) == "" {
		return apperrors.NewValidationError("cashID is required for non-debt entries")
	}
	return nil
}

// Target returns the balance bucket the entry will affect.
func (in LedgerEntryInput) Target() BalanceTarget {
	if in.IsDebt {
		return ClientTarget(*in.ClientID)
	}
	return CashTarget(*in.CashID)
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewAppError(apperrors.ErrValidation, "invalid ledger entry", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fe.Field()+" is required")
		case "excluded_if":
			msgs = append(msgs, fe.Field()+" must be empty for debt entries")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return apperrors.NewValidationError(strings.Join(msgs, "; "))
}
