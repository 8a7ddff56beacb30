package repositories

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
)

// CurrencyReader defines read operations for currency data
type CurrencyReader interface {
	// FindCurrencyByID retrieves a specific currency by its id.
	FindCurrencyByID(ctx context.Context, currencyID string) (*domain.Currency, error)

	// ListCurrencyHistory returns every rate bucket of a currency visible to a
	// company: its company-specific rows and the global ones.
	ListCurrencyHistory(ctx context.Context, currencyID, companyID string) ([]domain.CurrencyHistory, error)
}

// CurrencyRepositoryFacade combines all currency-related repository interfaces
type CurrencyRepositoryFacade interface {
	CurrencyReader
}
