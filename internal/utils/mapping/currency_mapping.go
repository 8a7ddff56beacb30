package mapping

import (
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/models"
)

// ToDomainCurrency converts a model Currency to a domain Currency
func ToDomainCurrency(m models.Currency) domain.Currency {
	return domain.Currency{
		ID:        m.ID,
		CompanyID: FromNullString(m.CompanyID),
		Code:      m.Code,
		Symbol:    m.Symbol,
		Name:      m.Name,
		IsDefault: m.IsDefault,
		IsReport:  m.IsReport,
	}
}

// ToDomainCurrencyHistory converts a rate bucket row. A NULL end_date is an open bucket.
func ToDomainCurrencyHistory(m models.CurrencyHistory) domain.CurrencyHistory {
	h := domain.CurrencyHistory{
		ID:           m.ID,
		CurrencyID:   m.CurrencyID,
		CompanyID:    FromNullString(m.CompanyID),
		ExchangeRate: m.ExchangeRate,
		StartDate:    m.StartDate,
	}
	if m.EndDate.Valid {
		end := m.EndDate.Time
		h.EndDate = &end
	}
	return h
}

// ToDomainCurrencyHistorySlice converts a slice of rate bucket rows.
func ToDomainCurrencyHistorySlice(ms []models.CurrencyHistory) []domain.CurrencyHistory {
	ds := make([]domain.CurrencyHistory, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainCurrencyHistory(m)
	}
	return ds
}
