package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bizledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

var fallbackRate = decimal.NewFromInt(1)

type historyKey struct {
	currencyID string
	companyID  string
}

// rateResolver picks the exchange-rate bucket of a currency for a date.
type rateResolver struct {
	BaseService
	currencyRepo portsrepo.CurrencyReader

	// cache is nil unless the resolver was built for batch use.
	mu    sync.Mutex
	cache map[historyKey][]domain.CurrencyHistory
}

// NewRateResolver creates a resolver that reads history on every call.
func NewRateResolver(currencyRepo portsrepo.CurrencyReader) portssvc.RateResolverSvc {
	return &rateResolver{currencyRepo: currencyRepo}
}

// NewBatchRateResolver creates a resolver that loads each (currency, company)
// history once and keeps it for its own lifetime. Build one per batch run.
func NewBatchRateResolver(currencyRepo portsrepo.CurrencyReader) portssvc.RateResolverSvc {
	return &rateResolver{
		currencyRepo: currencyRepo,
		cache:        make(map[historyKey][]domain.CurrencyHistory),
	}
}

var _ portssvc.RateResolverSvc = (*rateResolver)(nil)

// ResolveRate returns the rate of currencyID against the company base
// currency on date. Company rows take precedence over global rows; among
// matching rows the latest start wins. When nothing matches the rate falls
// back to 1 and a warning is logged.
func (s *rateResolver) ResolveRate(ctx context.Context, cc domain.CompanyContext, currencyID string, date time.Time) (decimal.Decimal, error) {
	if err := cc.Validate(); err != nil {
		return decimal.Zero, err
	}
	if currencyID == "" {
		return decimal.Zero, apperrors.NewValidationError("currency id is required")
	}
	if currencyID == cc.DefaultCurrencyID {
		return decimal.NewFromInt(1), nil
	}

	rows, err := s.history(ctx, currencyID, cc.CompanyID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load currency history",
			slog.String("currency_id", currencyID), slog.String("company_id", cc.CompanyID))
		return decimal.Zero, err
	}

	companyRows := 0
	for _, h := range rows {
		if !h.IsGlobal() {
			companyRows++
		}
	}
	if h, ok := pickBucket(rows, date, false); ok {
		return h.ExchangeRate, nil
	}
	if h, ok := pickBucket(rows, date, true); ok {
		return h.ExchangeRate, nil
	}

	s.GetLogger(ctx).Warn("No exchange rate bucket covers date, using fallback rate 1",
		slog.String("currency_id", currencyID),
		slog.String("company_id", cc.CompanyID),
		slog.Time("date", date),
		slog.Int("history_rows", len(rows)),
		slog.Int("company_rows", companyRows))
	return fallbackRate, nil
}

// pickBucket returns the latest-started bucket containing date among the
// global rows (global=true) or the company rows (global=false).
func pickBucket(rows []domain.CurrencyHistory, date time.Time, global bool) (domain.CurrencyHistory, bool) {
	var best domain.CurrencyHistory
	found := false
	for _, h := range rows {
		if h.IsGlobal() != global || !h.Contains(date) {
			continue
		}
		if !found || h.StartDate.After(best.StartDate) {
			best = h
			found = true
		}
	}
	return best, found
}

func (s *rateResolver) history(ctx context.Context, currencyID, companyID string) ([]domain.CurrencyHistory, error) {
	if s.cache == nil {
		return s.currencyRepo.ListCurrencyHistory(ctx, currencyID, companyID)
	}

	key := historyKey{currencyID: currencyID, companyID: companyID}
	s.mu.Lock()
	rows, ok := s.cache[key]
	s.mu.Unlock()
	if ok {
		return rows, nil
	}

	rows, err := s.currencyRepo.ListCurrencyHistory(ctx, currencyID, companyID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[key] = rows
	s.mu.Unlock()
	return rows, nil
}
