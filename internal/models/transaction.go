package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one row of the transactions table.
type Transaction struct {
	ID         string              `db:"id"`
	CompanyID  string              `db:"company_id"`
	Type       int16               `db:"type"` // 0 expense, 1 income
	IsDebt     bool                `db:"is_debt"`
	Amount     decimal.Decimal     `db:"amount"`
	OrigAmount decimal.Decimal     `db:"orig_amount"`
	CurrencyID string              `db:"currency_id"`
	RepRate    decimal.NullDecimal `db:"rep_rate"`
	RepAmount  decimal.NullDecimal `db:"rep_amount"`
	DefRate    decimal.NullDecimal `db:"def_rate"`
	DefAmount  decimal.NullDecimal `db:"def_amount"`
	ClientID   sql.NullString      `db:"client_id"`
	CashID     sql.NullString      `db:"cash_id"`
	SourceType string              `db:"source_type"`
	SourceID   string              `db:"source_id"`
	CategoryID sql.NullString      `db:"category_id"`
	ProjectID  sql.NullString      `db:"project_id"`
	UserID     string              `db:"user_id"`
	Note       string              `db:"note"`
	Date       time.Time           `db:"date"`
	IsDeleted  bool                `db:"is_deleted"`
	AuditFields
}
