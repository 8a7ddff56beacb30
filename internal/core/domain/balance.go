package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKind distinguishes the two kinds of balance bucket.
type BalanceKind string

const (
	BalanceClient BalanceKind = "client"
	BalanceCash   BalanceKind = "cash_register"
)

// BalanceTarget identifies one client or cash register balance.
type BalanceTarget struct {
	Kind BalanceKind `json:"kind"`
	ID   string      `json:"id"`
}

func ClientTarget(id string) BalanceTarget { return BalanceTarget{Kind: BalanceClient, ID: id} }
func CashTarget(id string) BalanceTarget   { return BalanceTarget{Kind: BalanceCash, ID: id} }

func (t BalanceTarget) String() string { return string(t.Kind) + ":" + t.ID }

// Less orders targets clients first, then by id. Balance rows are always
// locked in this order.
func (t BalanceTarget) Less(o BalanceTarget) bool {
	if t.Kind != o.Kind {
		return t.Kind == BalanceClient
	}
	return t.ID < o.ID
}

// BalanceEffect is a signed amount to add to one balance.
type BalanceEffect struct {
	Target BalanceTarget
	Delta  decimal.Decimal
}

// Client is a counterparty with a running debt balance in the company default currency.
// A positive balance means the client owes the company.
type Client struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"companyID"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
}

// CashRegister holds money in a single currency.
type CashRegister struct {
	ID         string          `json:"id"`
	CompanyID  string          `json:"companyID"`
	Name       string          `json:"name"`
	CurrencyID string          `json:"currencyID"`
	Balance    decimal.Decimal `json:"balance"`
}

// Balance is the stored value of one bucket.
type Balance struct {
	Target     BalanceTarget
	CompanyID  string
	Name       string
	CurrencyID string // cash registers only
	Amount     decimal.Decimal
}

// EntryFilter selects active ledger rows for summing.
type EntryFilter struct {
	CompanyID string
	Target    BalanceTarget
	IsDebt    *bool // nil = both partitions
	Before    *time.Time
}

// EntrySums is the aggregate of active rows matching a filter.
type EntrySums struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int64
}

// Net returns income minus expense.
func (s EntrySums) Net() decimal.Decimal {
	return s.Income.Sub(s.Expense)
}

// Add accumulates one row.
func (s *EntrySums) Add(t TransactionType, amount decimal.Decimal) {
	if t == Income {
		s.Income = s.Income.Add(amount)
	} else {
		s.Expense = s.Expense.Add(amount)
	}
	s.Count++
}
