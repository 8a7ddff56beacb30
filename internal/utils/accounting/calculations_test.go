package accounting_test

import (
	"testing"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }
func boolPtr(b bool) *bool { return &b }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNetDeltas_SameTargetCollapses(t *testing.T) {
	old := domain.Transaction{Type: domain.Income, IsDebt: true, ClientID: ptr("c1"), Amount: dec("250")}
	updated := old
	updated.Amount = dec("300")

	deltas := accounting.NetDeltas(accounting.Effects(old), accounting.Effects(updated))
	require.Len(t, deltas, 1)
	assert.True(t, deltas[domain.ClientTarget("c1")].Equal(dec("50")))
}

func TestNetDeltas_FlagFlipMovesBetweenBalances(t *testing.T) {
	old := domain.Transaction{Type: domain.Income, IsDebt: true, ClientID: ptr("c1"), CashID: nil, Amount: dec("100")}
	updated := domain.Transaction{Type: domain.Income, IsDebt: false, ClientID: ptr("c1"), CashID: ptr("k1"), Amount: dec("100")}

	deltas := accounting.NetDeltas(accounting.Effects(old), accounting.Effects(updated))
	require.Len(t, deltas, 2)
	assert.True(t, deltas[domain.ClientTarget("c1")].Equal(dec("-100")))
	assert.True(t, deltas[domain.CashTarget("k1")].Equal(dec("100")))
}

func TestNetDeltas_NoChangeIsEmpty(t *testing.T) {
	row := domain.Transaction{Type: domain.Expense, CashID: ptr("k1"), Amount: dec("10")}
	assert.Empty(t, accounting.NetDeltas(accounting.Effects(row), accounting.Effects(row)))
}

func TestNetDeltas_DeleteReverses(t *testing.T) {
	row := domain.Transaction{Type: domain.Expense, CashID: ptr("k1"), Amount: dec("10")}
	deleted := row
	deleted.IsDeleted = true

	deltas := accounting.NetDeltas(accounting.Effects(row), accounting.Effects(deleted))
	assert.True(t, deltas[domain.CashTarget("k1")].Equal(dec("10")))
}

func TestSortedTargets_LockOrder(t *testing.T) {
	deltas := map[domain.BalanceTarget]decimal.Decimal{
		domain.CashTarget("a"):   dec("1"),
		domain.ClientTarget("b"): dec("1"),
		domain.ClientTarget("a"): dec("1"),
	}
	assert.Equal(t, []domain.BalanceTarget{
		domain.ClientTarget("a"),
		domain.ClientTarget("b"),
		domain.CashTarget("a"),
	}, accounting.SortedTargets(deltas))
}

func TestSumEntries_Partitions(t *testing.T) {
	rows := []domain.Transaction{
		{CompanyID: "co", Type: domain.Income, IsDebt: false, CashID: ptr("k1"), Amount: dec("100")},
		{CompanyID: "co", Type: domain.Expense, IsDebt: false, CashID: ptr("k1"), Amount: dec("30")},
		{CompanyID: "co", Type: domain.Income, IsDebt: true, CashID: ptr("k1"), ClientID: ptr("c1"), Amount: dec("50")},
		{CompanyID: "co", Type: domain.Income, IsDebt: false, CashID: ptr("k1"), Amount: dec("999"), IsDeleted: true},
		{CompanyID: "other", Type: domain.Income, IsDebt: false, CashID: ptr("k1"), Amount: dec("7")},
	}

	cash := domain.EntryFilter{CompanyID: "co", Target: domain.CashTarget("k1"), IsDebt: boolPtr(false)}
	sums := accounting.SumEntries(rows, cash)
	assert.True(t, sums.Net().Equal(dec("70")))
	assert.EqualValues(t, 2, sums.Count)

	cash.IsDebt = nil
	assert.True(t, accounting.SumEntries(rows, cash).Net().Equal(dec("120")))

	cash.IsDebt = boolPtr(true)
	assert.True(t, accounting.SumEntries(rows, cash).Net().Equal(dec("50")))
}
