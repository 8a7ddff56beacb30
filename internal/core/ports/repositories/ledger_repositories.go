package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// LedgerReader defines read operations for ledger entries. Every aggregate
// query works on active (non-deleted) entries only.
type LedgerReader interface {
	// FindTransactionByID retrieves an entry, deleted or not.
	FindTransactionByID(ctx context.Context, companyID, transactionID string) (*domain.Transaction, error)

	// SumActiveEntries totals active entries matching filter by direction.
	SumActiveEntries(ctx context.Context, filter domain.EntryFilter) (domain.EntrySums, error)

	// ListActiveEntries returns up to limit active entries with id > afterID, ordered by id.
	ListActiveEntries(ctx context.Context, companyID string, afterID string, limit int) ([]domain.Transaction, error)
}

// LedgerWriter defines writes that do not affect balances.
type LedgerWriter interface {
	// UpdateCurrencyFields overwrites rep/def rate and amount columns of one entry.
	UpdateCurrencyFields(ctx context.Context, txn domain.Transaction) error
}

// LedgerTransactionSupport defines operations that run inside a posting transaction.
type LedgerTransactionSupport interface {
	// FindTransactionForUpdate selects an entry and locks it.
	FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, companyID, transactionID string) (*domain.Transaction, error)

	// FindAutomaticDebtForUpdate locks the active income debt entry of a source document.
	// Returns apperrors.ErrNotFound when the document has none.
	FindAutomaticDebtForUpdate(ctx context.Context, tx pgx.Tx, companyID string, source domain.SourceRef) (*domain.Transaction, error)

	// InsertTransactionInTx persists a new entry.
	InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error

	// UpdateTransactionInTx overwrites the mutable fields of an entry.
	UpdateTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error

	// MarkTransactionDeletedInTx soft-deletes an entry.
	MarkTransactionDeletedInTx(ctx context.Context, tx pgx.Tx, transactionID string, userID string, now time.Time) error

	// SumActiveEntriesInTx is SumActiveEntries reading through tx.
	SumActiveEntriesInTx(ctx context.Context, tx pgx.Tx, filter domain.EntryFilter) (domain.EntrySums, error)
}

// LedgerRepositoryFacade combines all ledger-related repository interfaces
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
	LedgerTransactionSupport
}

// LedgerRepositoryWithTx extends LedgerRepositoryFacade with transaction capabilities
type LedgerRepositoryWithTx interface {
	LedgerRepositoryFacade
	TransactionManager
}
