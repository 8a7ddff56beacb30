package domain_test

import (
	"testing"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func validDebtInput() domain.LedgerEntryInput {
	return domain.LedgerEntryInput{
		Type:       domain.Income,
		IsDebt:     true,
		OrigAmount: decimal.NewFromInt(500),
		CurrencyID: "usd",
		ClientID:   strPtr("client-1"),
		Source:     domain.SourceRef{Kind: domain.SourceOrder, ID: "order-1"},
		UserID:     "user-1",
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLedgerEntryInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *domain.LedgerEntryInput)
		wantErr bool
		errMsg  string
	}{
		{name: "valid debt entry", mutate: func(in *domain.LedgerEntryInput) {}},
		{
			name: "valid cash entry with informational client",
			mutate: func(in *domain.LedgerEntryInput) {
				in.IsDebt = false
				in.CashID = strPtr("cash-1")
			},
		},
		{
			name:    "debt entry without client",
			mutate:  func(in *domain.LedgerEntryInput) { in.ClientID = nil },
			wantErr: true,
			errMsg:  "ClientID is required",
		},
		{
			name:    "debt entry with cash register",
			mutate:  func(in *domain.LedgerEntryInput) { in.CashID = strPtr("cash-1") },
			wantErr: true,
			errMsg:  "CashID must be empty",
		},
		{
			name: "cash entry without cash register",
			mutate: func(in *domain.LedgerEntryInput) {
				in.IsDebt = false
				in.ClientID = nil
			},
			wantErr: true,
			errMsg:  "CashID is required",
		},
		{
			name:    "negative amount",
			mutate:  func(in *domain.LedgerEntryInput) { in.OrigAmount = decimal.NewFromInt(-1) },
			wantErr: true,
			errMsg:  "must not be negative",
		},
		{
			name:    "unknown source kind",
			mutate:  func(in *domain.LedgerEntryInput) { in.Source.Kind = "invoice" },
			wantErr: true,
			errMsg:  "unknown source kind",
		},
		{
			name:    "document source without id",
			mutate:  func(in *domain.LedgerEntryInput) { in.Source.ID = "" },
			wantErr: true,
			errMsg:  "source id is required",
		},
		{
			name:    "unknown type",
			mutate:  func(in *domain.LedgerEntryInput) { in.Type = 7 },
			wantErr: true,
			errMsg:  "Type failed oneof",
		},
		{
			name:    "missing date",
			mutate:  func(in *domain.LedgerEntryInput) { in.Date = time.Time{} },
			wantErr: true,
			errMsg:  "Date is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validDebtInput()
			tt.mutate(&in)
			err := in.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTransaction_BalanceEffect(t *testing.T) {
	tx := domain.Transaction{
		Type:     domain.Expense,
		IsDebt:   false,
		Amount:   decimal.NewFromInt(200),
		ClientID: strPtr("client-1"),
		CashID:   strPtr("cash-1"),
	}

	eff, ok := tx.BalanceEffect()
	require.True(t, ok)
	assert.Equal(t, domain.CashTarget("cash-1"), eff.Target, "non-debt rows never touch the client balance")
	assert.True(t, eff.Delta.Equal(decimal.NewFromInt(-200)))

	tx.IsDebt = true
	tx.Type = domain.Income
	eff, ok = tx.BalanceEffect()
	require.True(t, ok)
	assert.Equal(t, domain.ClientTarget("client-1"), eff.Target)
	assert.True(t, eff.Delta.Equal(decimal.NewFromInt(200)))

	tx.IsDeleted = true
	_, ok = tx.BalanceEffect()
	assert.False(t, ok)
}

func TestBalanceTarget_LessOrdersClientsFirst(t *testing.T) {
	assert.True(t, domain.ClientTarget("z").Less(domain.CashTarget("a")))
	assert.False(t, domain.CashTarget("a").Less(domain.ClientTarget("z")))
	assert.True(t, domain.CashTarget("a").Less(domain.CashTarget("b")))
}

func TestCurrencyHistory_Contains(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	h := domain.CurrencyHistory{StartDate: start, EndDate: &end}

	assert.True(t, h.Contains(start))
	assert.True(t, h.Contains(end.Add(-time.Second)))
	assert.False(t, h.Contains(end), "end is exclusive")
	assert.False(t, h.Contains(start.Add(-time.Second)))

	h.EndDate = nil
	assert.True(t, h.Contains(end.AddDate(5, 0, 0)))
}

func TestSourceKind_RoundingContext(t *testing.T) {
	assert.Equal(t, domain.RoundOrders, domain.SourceOrder.RoundingContext())
	assert.Equal(t, domain.RoundSales, domain.SourceSale.RoundingContext())
	assert.Equal(t, domain.RoundReceipts, domain.SourceReceipt.RoundingContext())
	assert.Equal(t, domain.RoundTransactions, domain.SourceManual.RoundingContext())
}

func TestCompanyContext_Validate(t *testing.T) {
	cc := domain.CompanyContext{CompanyID: "co-1"}
	assert.ErrorIs(t, cc.Validate(), apperrors.ErrConfiguration)

	cc.DefaultCurrencyID = "uzs"
	assert.NoError(t, cc.Validate())
	assert.False(t, cc.HasReportCurrency())

	cc.ReportCurrencyID = "usd"
	assert.True(t, cc.HasReportCurrency())
	assert.False(t, cc.PolicyFor(domain.RoundOrders).Enabled)
}
