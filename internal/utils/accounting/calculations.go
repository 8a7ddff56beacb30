package accounting

import (
	"sort"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Effects collects the balance effects of txns. Rows that affect no balance
// (deleted, or missing their target reference) are skipped.
func Effects(txns ...domain.Transaction) []domain.BalanceEffect {
	effects := make([]domain.BalanceEffect, 0, len(txns))
	for _, txn := range txns {
		if eff, ok := txn.BalanceEffect(); ok {
			effects = append(effects, eff)
		}
	}
	return effects
}

// NetDeltas returns, per balance, the amount that turns the state produced by
// before into the state produced by after. Balances whose net change is zero
// are omitted.
func NetDeltas(before, after []domain.BalanceEffect) map[domain.BalanceTarget]decimal.Decimal {
	deltas := make(map[domain.BalanceTarget]decimal.Decimal)
	for _, eff := range before {
		deltas[eff.Target] = deltas[eff.Target].Sub(eff.Delta)
	}
	for _, eff := range after {
		deltas[eff.Target] = deltas[eff.Target].Add(eff.Delta)
	}
	for target, delta := range deltas {
		if delta.IsZero() {
			delete(deltas, target)
		}
	}
	return deltas
}

// SortedTargets returns the keys of deltas in lock order.
func SortedTargets(deltas map[domain.BalanceTarget]decimal.Decimal) []domain.BalanceTarget {
	targets := make([]domain.BalanceTarget, 0, len(deltas))
	for target := range deltas {
		targets = append(targets, target)
	}
	SortTargets(targets)
	return targets
}

// SortTargets orders targets clients first, then by id.
func SortTargets(targets []domain.BalanceTarget) {
	sort.Slice(targets, func(i, j int) bool { return targets[i].Less(targets[j]) })
}

// SumEntries totals the active rows of txns matching filter. It mirrors the
// aggregate the repositories compute in SQL.
func SumEntries(txns []domain.Transaction, filter domain.EntryFilter) domain.EntrySums {
	sums := domain.EntrySums{}
	for _, txn := range txns {
		if !Matches(txn, filter) {
			continue
		}
		sums.Add(txn.Type, txn.Amount)
	}
	return sums
}

// Matches reports whether an active row falls under filter. The target is
// matched on the reference column alone, so rows in the wrong partition
// can still be selected with IsDebt.
func Matches(txn domain.Transaction, filter domain.EntryFilter) bool {
	if txn.IsDeleted {
		return false
	}
	if filter.CompanyID != "" && txn.CompanyID != filter.CompanyID {
		return false
	}
	if filter.IsDebt != nil && txn.IsDebt != *filter.IsDebt {
		return false
	}
	if filter.Before != nil && !txn.Date.Before(*filter.Before) {
		return false
	}
	var ref *string
	switch filter.Target.Kind {
	case domain.BalanceClient:
		ref = txn.ClientID
	case domain.BalanceCash:
		ref = txn.CashID
	default:
		return false
	}
	return ref != nil && *ref == filter.Target.ID
}
