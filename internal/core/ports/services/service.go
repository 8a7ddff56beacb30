package services

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used by the CLI commands and the scheduler.
type ServiceContainer struct {
	Rates          RateResolverSvc
	Converter      CurrencyConverterSvc
	Ledger         LedgerSvcFacade
	Reconciliation ReconciliationSvcFacade
}
