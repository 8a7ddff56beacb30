package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	portssvc "github.com/SscSPs/bizledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// currencyConverter converts through the company base currency. It never rounds.
type currencyConverter struct {
	rates portssvc.RateResolverSvc
}

// NewCurrencyConverter creates a converter on top of rates.
func NewCurrencyConverter(rates portssvc.RateResolverSvc) portssvc.CurrencyConverterSvc {
	return &currencyConverter{rates: rates}
}

var _ portssvc.CurrencyConverterSvc = (*currencyConverter)(nil)

// ConversionRate returns the multiplier from fromID to toID:
//
//	from == to    1
//	from == base  1 / r(to)
//	to == base    r(from)
//	otherwise     r(from) / r(to)
func (s *currencyConverter) ConversionRate(ctx context.Context, cc domain.CompanyContext, fromID, toID string, date time.Time) (decimal.Decimal, error) {
	if err := cc.Validate(); err != nil {
		return decimal.Zero, err
	}
	if fromID == toID {
		return decimal.NewFromInt(1), nil
	}

	base := cc.DefaultCurrencyID
	switch {
	case fromID == base:
		to, err := s.rate(ctx, cc, toID, date)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromInt(1).Div(to), nil
	case toID == base:
		return s.rate(ctx, cc, fromID, date)
	default:
		from, err := s.rate(ctx, cc, fromID, date)
		if err != nil {
			return decimal.Zero, err
		}
		to, err := s.rate(ctx, cc, toID, date)
		if err != nil {
			return decimal.Zero, err
		}
		return from.Div(to), nil
	}
}

// Convert returns amount expressed in toID. The result is not rounded.
func (s *currencyConverter) Convert(ctx context.Context, cc domain.CompanyContext, amount decimal.Decimal, fromID, toID string, date time.Time) (decimal.Decimal, error) {
	if fromID == toID {
		return amount, nil
	}
	rate, err := s.ConversionRate(ctx, cc, fromID, toID, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// CurrencyValues derives def_rate/def_amount and rep_rate/rep_amount. When the
// company has no separate report currency the report values mirror the base ones.
func (s *currencyConverter) CurrencyValues(ctx context.Context, cc domain.CompanyContext, amount decimal.Decimal, currencyID string, date time.Time) (domain.CurrencyValues, error) {
	defRate, err := s.ConversionRate(ctx, cc, currencyID, cc.DefaultCurrencyID, date)
	if err != nil {
		return domain.CurrencyValues{}, err
	}
	values := domain.CurrencyValues{
		DefRate:   defRate,
		DefAmount: amount.Mul(defRate),
	}
	if !cc.HasReportCurrency() {
		values.RepRate = values.DefRate
		values.RepAmount = values.DefAmount
		return values, nil
	}

	repRate, err := s.ConversionRate(ctx, cc, currencyID, cc.ReportCurrencyID, date)
	if err != nil {
		return domain.CurrencyValues{}, err
	}
	values.RepRate = repRate
	values.RepAmount = amount.Mul(repRate)
	return values, nil
}

func (s *currencyConverter) rate(ctx context.Context, cc domain.CompanyContext, currencyID string, date time.Time) (decimal.Decimal, error) {
	r, err := s.rates.ResolveRate(ctx, cc, currencyID, date)
	if err != nil {
		return decimal.Zero, err
	}
	if !r.IsPositive() {
		return decimal.Zero, apperrors.NewConfigurationError(
			fmt.Sprintf("exchange rate of currency %s on %s is %s", currencyID, date.Format(time.DateOnly), r))
	}
	return r, nil
}
