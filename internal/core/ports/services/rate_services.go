package services

import (
	"context"
	"time"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// RateResolverSvc resolves historical rates against the company base currency.
type RateResolverSvc interface {
	// ResolveRate returns the rate of currencyID on date. The base currency is always 1.
	ResolveRate(ctx context.Context, cc domain.CompanyContext, currencyID string, date time.Time) (decimal.Decimal, error)
}

// CurrencyConverterSvc converts amounts between company currencies.
type CurrencyConverterSvc interface {
	// ConversionRate returns the multiplier converting fromID amounts into toID on date.
	ConversionRate(ctx context.Context, cc domain.CompanyContext, fromID, toID string, date time.Time) (decimal.Decimal, error)

	// Convert multiplies amount by ConversionRate. The result is not rounded.
	Convert(ctx context.Context, cc domain.CompanyContext, amount decimal.Decimal, fromID, toID string, date time.Time) (decimal.Decimal, error)

	// CurrencyValues derives the base and report currency columns of an entry.
	CurrencyValues(ctx context.Context, cc domain.CompanyContext, amount decimal.Decimal, currencyID string, date time.Time) (domain.CurrencyValues, error)
}
