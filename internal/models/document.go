package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceDocument is an order, sale or warehouse receipt row as read by reconciliation.
type SourceDocument struct {
	SourceType string          `db:"source_type"`
	ID         string          `db:"id"`
	CompanyID  string          `db:"company_id"`
	ClientID   string          `db:"client_id"`
	CurrencyID string          `db:"currency_id"`
	Total      decimal.Decimal `db:"total"`
	Date       time.Time       `db:"date"`
}
