package mapping_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/models"
	"github.com/SscSPs/bizledger/internal/utils/mapping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainCompanyContext(t *testing.T) {
	row := models.CompanyCurrencies{
		CompanyID:         "co-1",
		DefaultCurrencyID: sql.NullString{String: "uzs", Valid: true},
	}
	policies := []models.RoundingPolicy{
		{CompanyID: "co-1", Context: "orders", Decimals: 2, Enabled: true, Direction: "custom", CustomThreshold: decimal.RequireFromString("0.3")},
		{CompanyID: "co-2", Context: "sales", Decimals: 0, Enabled: true, Direction: "up"},
	}

	cc := mapping.ToDomainCompanyContext(row, policies)

	assert.Equal(t, "uzs", cc.DefaultCurrencyID)
	assert.Empty(t, cc.ReportCurrencyID)
	assert.False(t, cc.HasReportCurrency())
	require.Len(t, cc.Rounding, 1)
	p := cc.PolicyFor(domain.RoundOrders)
	assert.Equal(t, 2, p.Decimals)
	assert.Equal(t, domain.RoundCustom, p.Direction)
	assert.Equal(t, "0.3", p.CustomThreshold.String())
	assert.False(t, cc.PolicyFor(domain.RoundSales).Enabled)
}

func TestToDomainCompanyContext_MissingDefaultFailsValidation(t *testing.T) {
	cc := mapping.ToDomainCompanyContext(models.CompanyCurrencies{CompanyID: "co-1"}, nil)

	assert.Error(t, cc.Validate())
}

func TestTransactionNullableColumns(t *testing.T) {
	client := "client-1"
	d := domain.Transaction{
		ID:       "t-1",
		Type:     domain.Income,
		IsDebt:   true,
		ClientID: &client,
		Source:   domain.SourceRef{Kind: domain.SourceOrder, ID: "o-1"},
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	m := mapping.ToModelTransaction(d)

	assert.Equal(t, int16(1), m.Type)
	assert.True(t, m.ClientID.Valid)
	assert.False(t, m.CashID.Valid)
	assert.False(t, m.RepRate.Valid)
	assert.Equal(t, "order", m.SourceType)

	back := mapping.ToDomainTransaction(m)
	assert.Equal(t, d.Source, back.Source)
	require.NotNil(t, back.ClientID)
	assert.Equal(t, client, *back.ClientID)
	assert.Nil(t, back.CashID)
	assert.True(t, back.MissingCurrencyFields())
}

func TestToDomainCurrencyHistory_OpenBucket(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := mapping.ToDomainCurrencyHistory(models.CurrencyHistory{ID: "h1", CurrencyID: "usd", StartDate: start})

	assert.Nil(t, h.EndDate)
	assert.True(t, h.IsGlobal())
	assert.True(t, h.Contains(start.AddDate(10, 0, 0)))
}
