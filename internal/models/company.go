package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// CompanyCurrencies is the default and report currency of a company as read
// from currencies. Either may be missing.
type CompanyCurrencies struct {
	CompanyID         string         `db:"company_id"`
	DefaultCurrencyID sql.NullString `db:"default_currency_id"`
	ReportCurrencyID  sql.NullString `db:"report_currency_id"`
}

// RoundingPolicy is one row of company_rounding_policies.
type RoundingPolicy struct {
	CompanyID       string          `db:"company_id"`
	Context         string          `db:"context"`
	Decimals        int16           `db:"decimals"`
	Enabled         bool            `db:"enabled"`
	Direction       string          `db:"direction"`
	CustomThreshold decimal.Decimal `db:"custom_threshold"`
}
