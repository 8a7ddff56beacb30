package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Hypothesis is one candidate explanation for a stored balance.
type Hypothesis struct {
	Name     string          `json:"name"`
	Value    decimal.Decimal `json:"value"`
	Distance decimal.Decimal `json:"distance"` // |stored - value|
}

// BalanceCheck is the outcome of reconciling a single balance bucket.
type BalanceCheck struct {
	Target     BalanceTarget   `json:"target"`
	Name       string          `json:"name"`
	Stored     decimal.Decimal `json:"stored"`
	Calculated decimal.Decimal `json:"calculated"`
	Difference decimal.Decimal `json:"difference"` // stored - calculated
	Mismatch   bool            `json:"mismatch"`
	Fixed      bool            `json:"fixed"`
	Hypotheses []Hypothesis    `json:"hypotheses,omitempty"`
	Best       *Hypothesis     `json:"best,omitempty"`
	Err        string          `json:"error,omitempty"`
}

// ReconciliationReport aggregates the checks of one job run.
type ReconciliationReport struct {
	Job         string         `json:"job"`
	CompanyID   string         `json:"companyID,omitempty"`
	DryRun      bool           `json:"dryRun"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
	Checked     int            `json:"checked"`
	Mismatches  int            `json:"mismatches"`
	Fixed       int            `json:"fixed"`
	Errors      int            `json:"errors"`
	Interrupted bool           `json:"interrupted"`
	Checks      []BalanceCheck `json:"checks"`
}

// Record updates the counters with c. Matching checks are only kept in
// Checks when keepMatching is set; mismatches and failures always are.
func (r *ReconciliationReport) Record(c BalanceCheck, keepMatching bool) {
	if keepMatching || c.Mismatch || c.Err != "" {
		r.Checks = append(r.Checks, c)
	}
	if c.Err != "" {
		r.Errors++
		return
	}
	r.Checked++
	if c.Mismatch {
		r.Mismatches++
	}
	if c.Fixed {
		r.Fixed++
	}
}

// CurrencyRecalcStats summarises a currency-field backfill.
type CurrencyRecalcStats struct {
	Processed   int  `json:"processed"`
	Updated     int  `json:"updated"`
	Skipped     int  `json:"skipped"`
	Errors      int  `json:"errors"`
	Interrupted bool `json:"interrupted"`
}

// ReconcileOptions scope a reconciliation run.
type ReconcileOptions struct {
	CompanyID string // empty = every company
	TargetID  string // single client or cash register id; empty = all
	DryRun    bool
	Detailed  bool // keep matching checks in the report, not only mismatches
	// IncludeDocuments nets uncovered orders, sales and receipts into client balances.
	IncludeDocuments bool
}

// CurrencyRecalcOptions scope a currency-field backfill.
type CurrencyRecalcOptions struct {
	CompanyID  string // empty = every company
	SkipFilled bool   // leave entries whose rep and def rates are already set
}
