package domain

import (
	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// RoundingContext names the document family a rounding policy applies to.
type RoundingContext string

const (
	RoundOrders       RoundingContext = "orders"
	RoundReceipts     RoundingContext = "receipts"
	RoundSales        RoundingContext = "sales"
	RoundTransactions RoundingContext = "transactions"
	RoundQuantity     RoundingContext = "quantity"
)

// RoundingDirection selects how the discarded digits are treated.
type RoundingDirection string

const (
	RoundStandard RoundingDirection = "standard" // half away from zero
	RoundUp       RoundingDirection = "up"       // away from zero
	RoundDown     RoundingDirection = "down"     // toward zero
	RoundCustom   RoundingDirection = "custom"   // away from zero once the remainder reaches CustomThreshold
)

// MaxRoundingDecimals is the largest precision a company may configure.
const MaxRoundingDecimals = 5

// RoundingPolicy is the per-company, per-context rounding configuration.
type RoundingPolicy struct {
	Decimals        int               `json:"decimals"`
	Enabled         bool              `json:"enabled"`
	Direction       RoundingDirection `json:"direction"`
	CustomThreshold decimal.Decimal   `json:"customThreshold"`
}

// CompanyContext replaces the ambient "current company" with an explicit value
// passed to every ledger and conversion call.
type CompanyContext struct {
	CompanyID         string
	DefaultCurrencyID string
	ReportCurrencyID  string // empty when the company reports in its base currency
	Rounding          map[RoundingContext]RoundingPolicy
}

// PolicyFor returns the configured policy for rc. An unconfigured context is
// treated as rounding disabled.
func (c CompanyContext) PolicyFor(rc RoundingContext) RoundingPolicy {
	if p, ok := c.Rounding[rc]; ok {
		return p
	}
	return RoundingPolicy{}
}

// HasReportCurrency reports whether report values differ from base values.
func (c CompanyContext) HasReportCurrency() bool {
	return c.ReportCurrencyID != "" && c.ReportCurrencyID != c.DefaultCurrencyID
}

// Validate checks the global preconditions every ledger path depends on.
func (c CompanyContext) Validate() error {
	if c.CompanyID == "" {
		return apperrors.NewConfigurationError("company id is not set")
	}
	if c.DefaultCurrencyID == "" {
		return apperrors.NewConfigurationError("company " + c.CompanyID + " has no default currency")
	}
	return nil
}
