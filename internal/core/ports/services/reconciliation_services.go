package services

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
)

// CashReconciliationSvc checks cash register balances against the ledger.
type CashReconciliationSvc interface {
	CheckCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
	AnalyzeCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
	// FixCashBalances overwrites mismatching balances unless opts.DryRun is set.
	FixCashBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
}

// ClientReconciliationSvc checks client balances against the ledger.
type ClientReconciliationSvc interface {
	CheckClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
	AnalyzeClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
	// RecalculateClientBalances overwrites mismatching balances unless opts.DryRun is set.
	RecalculateClientBalances(ctx context.Context, opts domain.ReconcileOptions) (*domain.ReconciliationReport, error)
}

// CurrencyFieldsSvc backfills derived currency columns.
type CurrencyFieldsSvc interface {
	RecalculateCurrencyFields(ctx context.Context, opts domain.CurrencyRecalcOptions) (*domain.CurrencyRecalcStats, error)
}

// ReconciliationSvcFacade combines all reconciliation service interfaces
type ReconciliationSvcFacade interface {
	CashReconciliationSvc
	ClientReconciliationSvc
	CurrencyFieldsSvc
}

// JobLocker serialises batch jobs across processes.
type JobLocker interface {
	// Acquire takes the named lock or fails with apperrors.ErrConflict when it is held elsewhere.
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}
