package services

import (
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/bizledger/internal/core/ports/services"
	"github.com/SscSPs/bizledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, locker portssvc.JobLocker) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Live postings resolve rates on every call; batch jobs build their own caching resolver.
	container.Rates = NewRateResolver(repos.CurrencyRepo)
	container.Converter = NewCurrencyConverter(container.Rates)

	container.Ledger = NewLedgerService(
		repos.LedgerRepo,
		repos.BalanceRepo,
		repos.CurrencyRepo,
		container.Converter,
		WithLedgerMaxRetries(cfg.LedgerMaxRetries),
	)

	container.Reconciliation = NewReconciliationService(
		repos.CompanyRepo,
		repos.LedgerRepo,
		repos.BalanceRepo,
		repos.DocumentRepo,
		repos.CurrencyRepo,
		WithChunkSize(cfg.ReconcileChunkSize),
		WithEpsilon(cfg.ReconcileEpsilon),
		WithJobLocker(locker),
		WithReconcileMaxRetries(cfg.LedgerMaxRetries),
	)

	return container
}
