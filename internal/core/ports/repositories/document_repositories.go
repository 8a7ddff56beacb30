package repositories

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
)

// DocumentReader reads source documents that imply client debt without a ledger row.
type DocumentReader interface {
	// ListUncoveredDebtDocuments returns active orders, sales and receipts of
	// a client that have no cash register and no active debt entry.
	ListUncoveredDebtDocuments(ctx context.Context, companyID, clientID string) ([]domain.SourceDocument, error)
}
