package services

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
)

// LedgerReaderSvc defines read operations for ledger entries
type LedgerReaderSvc interface {
	// GetItem retrieves an entry by id.
	GetItem(ctx context.Context, cc domain.CompanyContext, transactionID string) (*domain.Transaction, error)
}

// LedgerWriterSvc defines the posting operations. Each call is atomic: the
// ledger rows and the balance rows it touches change together or not at all.
type LedgerWriterSvc interface {
	// CreateItem posts a new entry and applies its balance effect.
	CreateItem(ctx context.Context, cc domain.CompanyContext, in domain.LedgerEntryInput, opts ...domain.PostOption) (*domain.Transaction, error)

	// UpdateItem replaces an entry, moving balances by the net difference of the old and new effects.
	UpdateItem(ctx context.Context, cc domain.CompanyContext, transactionID string, in domain.LedgerEntryInput, opts ...domain.PostOption) (*domain.Transaction, error)

	// DeleteItem soft-deletes an entry and reverses its effect. Deleting twice is a no-op.
	DeleteItem(ctx context.Context, cc domain.CompanyContext, transactionID string, userID string, opts ...domain.PostOption) error

	// SyncAutomaticDebt creates or updates in place the single automatic debt entry of a source document.
	SyncAutomaticDebt(ctx context.Context, cc domain.CompanyContext, in domain.LedgerEntryInput) (*domain.Transaction, error)

	// RecordDebtPayment posts the debt expense and the cash income of a payment together.
	RecordDebtPayment(ctx context.Context, cc domain.CompanyContext, p domain.DebtPaymentInput) (debt *domain.Transaction, cash *domain.Transaction, err error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerWriterSvc
}
