package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is one row of the currencies table.
type Currency struct {
	ID        string         `db:"id"`
	CompanyID sql.NullString `db:"company_id"`
	Code      string         `db:"code"`
	Symbol    string         `db:"symbol"`
	Name      string         `db:"name"`
	IsDefault bool           `db:"is_default"`
	IsReport  bool           `db:"is_report"`
}

// CurrencyHistory is one rate bucket of the currency_histories table.
type CurrencyHistory struct {
	ID           string          `db:"id"`
	CurrencyID   string          `db:"currency_id"`
	CompanyID    sql.NullString  `db:"company_id"`
	ExchangeRate decimal.Decimal `db:"exchange_rate"`
	StartDate    time.Time       `db:"start_date"`
	EndDate      sql.NullTime    `db:"end_date"`
}
