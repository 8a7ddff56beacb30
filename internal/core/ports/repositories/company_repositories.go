package repositories

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
)

// CompanyReader supplies the per-company configuration the ledger runs under.
type CompanyReader interface {
	// FindCompanyContext loads default/report currency ids and rounding policies.
	FindCompanyContext(ctx context.Context, companyID string) (*domain.CompanyContext, error)

	// ListCompanyIDs returns every company id in ascending order.
	ListCompanyIDs(ctx context.Context) ([]string, error)
}

// CompanyRepositoryFacade combines all company-related repository interfaces
type CompanyRepositoryFacade interface {
	CompanyReader
}
