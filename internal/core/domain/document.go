package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceDocument is a business document that implies client debt even when
// no ledger row was written for it (paid neither in cash nor recorded as debt).
type SourceDocument struct {
	Source     SourceRef       `json:"source"`
	CompanyID  string          `json:"companyID"`
	ClientID   string          `json:"clientID"`
	CurrencyID string          `json:"currencyID"`
	Total      decimal.Decimal `json:"total"`
	Date       time.Time       `json:"date"`
}

// DebtType is the direction the document moves the client balance: orders
// and sales increase what the client owes, receipts decrease it.
func (d SourceDocument) DebtType() TransactionType {
	if d.Source.Kind == SourceReceipt {
		return Expense
	}
	return Income
}
