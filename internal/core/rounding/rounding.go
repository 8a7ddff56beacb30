// Package rounding applies company rounding policies to amounts and quantities.
package rounding

import (
	"fmt"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// StoredAmountPlaces is the scale of every NUMERIC amount and balance column.
const StoredAmountPlaces = 5

// Round applies policy to value. A disabled policy returns value unchanged.
// Standard rounding is half away from zero.
func Round(value decimal.Decimal, policy domain.RoundingPolicy) (decimal.Decimal, error) {
	if !policy.Enabled {
		return value, nil
	}
	if policy.Decimals < 0 || policy.Decimals > domain.MaxRoundingDecimals {
		return decimal.Zero, apperrors.NewConfigurationError(
			fmt.Sprintf("rounding decimals must be between 0 and %d, got %d", domain.MaxRoundingDecimals, policy.Decimals))
	}
	places := int32(policy.Decimals)

	switch policy.Direction {
	case domain.RoundStandard, "":
		return value.Round(places), nil
	case domain.RoundUp:
		return value.RoundUp(places), nil
	case domain.RoundDown:
		return value.RoundDown(places), nil
	case domain.RoundCustom:
		return roundCustom(value, places, policy.CustomThreshold)
	}
	return decimal.Zero, apperrors.NewConfigurationError(fmt.Sprintf("unknown rounding direction %q", policy.Direction))
}

// roundCustom rounds away from zero when the discarded fraction, scaled to
// one unit of the last kept place, reaches threshold; otherwise toward zero.
func roundCustom(value decimal.Decimal, places int32, threshold decimal.Decimal) (decimal.Decimal, error) {
	if threshold.IsNegative() || threshold.GreaterThanOrEqual(one) {
		return decimal.Zero, apperrors.NewConfigurationError(
			"custom rounding threshold must be in [0, 1), got " + threshold.String())
	}
	scaled := value.Abs().Shift(places)
	remainder := scaled.Sub(scaled.Floor())
	if remainder.IsZero() {
		return value.Truncate(places), nil
	}
	if remainder.GreaterThanOrEqual(threshold) {
		return value.RoundUp(places), nil
	}
	return value.RoundDown(places), nil
}

// Amount rounds a monetary value with the company's policy for rc. The result
// never carries more than StoredAmountPlaces decimals, the scale of the amount
// columns, so a disabled policy still yields the value that gets stored.
func Amount(cc domain.CompanyContext, rc domain.RoundingContext, value decimal.Decimal) (decimal.Decimal, error) {
	rounded, err := Round(value, cc.PolicyFor(rc))
	if err != nil {
		return decimal.Zero, err
	}
	return rounded.Round(StoredAmountPlaces), nil
}

// Quantity rounds a goods quantity with the company's quantity policy.
func Quantity(cc domain.CompanyContext, value decimal.Decimal) (decimal.Decimal, error) {
	return Round(value, cc.PolicyFor(domain.RoundQuantity))
}
