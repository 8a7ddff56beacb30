package models

import "github.com/shopspring/decimal"

// Client is one row of the clients table. Balance is in the company default currency.
type Client struct {
	ID        string          `db:"id"`
	CompanyID string          `db:"company_id"`
	Name      string          `db:"name"`
	Balance   decimal.Decimal `db:"balance"`
}

// CashRegister is one row of the cash_registers table. Balance is in CurrencyID.
type CashRegister struct {
	ID         string          `db:"id"`
	CompanyID  string          `db:"company_id"`
	Name       string          `db:"name"`
	CurrencyID string          `db:"currency_id"`
	Balance    decimal.Decimal `db:"balance"`
}
