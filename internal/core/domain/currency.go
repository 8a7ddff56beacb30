package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency represents a currency known to one company (CompanyID set) or to all of them.
type Currency struct {
	ID        string  `json:"id"`
	CompanyID *string `json:"companyID,omitempty"` // nil = global
	Code      string  `json:"code"`                // e.g. "USD"
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	IsDefault bool    `json:"isDefault"` // base currency of the company
	IsReport  bool    `json:"isReport"`  // reporting currency of the company
}

// CurrencyHistory is one [StartDate, EndDate) bucket of a currency's rate
// against the company base currency. EndDate nil means the bucket is open.
type CurrencyHistory struct {
	ID           string          `json:"id"`
	CurrencyID   string          `json:"currencyID"`
	CompanyID    *string         `json:"companyID,omitempty"` // nil = global row
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      *time.Time      `json:"endDate,omitempty"`
}

// Contains reports whether date falls inside the bucket.
func (h CurrencyHistory) Contains(date time.Time) bool {
	if date.Before(h.StartDate) {
		return false
	}
	return h.EndDate == nil || date.Before(*h.EndDate)
}

// IsGlobal reports whether the row applies to every company.
func (h CurrencyHistory) IsGlobal() bool {
	return h.CompanyID == nil
}

// CurrencyValues are the derived base and report currency columns of an
// entry, before rounding.
type CurrencyValues struct {
	DefRate   decimal.Decimal
	DefAmount decimal.Decimal
	RepRate   decimal.Decimal
	RepAmount decimal.Decimal
}
