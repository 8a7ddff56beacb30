package repositories

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceReader defines read operations for client and cash register balances.
type BalanceReader interface {
	FindClient(ctx context.Context, companyID, clientID string) (*domain.Client, error)
	FindCashRegister(ctx context.Context, companyID, cashID string) (*domain.CashRegister, error)

	// ListClients returns up to limit clients with id > afterID, ordered by id.
	ListClients(ctx context.Context, companyID string, afterID string, limit int) ([]domain.Client, error)

	// ListCashRegisters returns up to limit cash registers with id > afterID, ordered by id.
	ListCashRegisters(ctx context.Context, companyID string, afterID string, limit int) ([]domain.CashRegister, error)
}

// BalanceTransactionSupport defines balance mutations. They are only
// available inside a transaction and only after the rows are locked.
type BalanceTransactionSupport interface {
	// LockBalancesForUpdate selects the balance rows of targets with FOR UPDATE,
	// in BalanceTarget.Less order. Targets that do not exist are absent from the result.
	LockBalancesForUpdate(ctx context.Context, tx pgx.Tx, companyID string, targets []domain.BalanceTarget) (map[domain.BalanceTarget]domain.Balance, error)

	// ApplyBalanceDeltasInTx adds each delta to its balance.
	ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, deltas map[domain.BalanceTarget]decimal.Decimal) error

	// SetBalanceInTx overwrites a stored balance.
	SetBalanceInTx(ctx context.Context, tx pgx.Tx, target domain.BalanceTarget, amount decimal.Decimal) error
}

// BalanceRepositoryFacade combines all balance-related repository interfaces
type BalanceRepositoryFacade interface {
	BalanceReader
	BalanceTransactionSupport
}

// BalanceRepositoryWithTx extends BalanceRepositoryFacade with transaction capabilities
type BalanceRepositoryWithTx interface {
	BalanceRepositoryFacade
	TransactionManager
}
