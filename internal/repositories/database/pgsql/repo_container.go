package pgsql

import (
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		CompanyRepo:  newPgxCompanyRepository(dbPool),
		CurrencyRepo: newPgxCurrencyRepository(dbPool),
		LedgerRepo:   newPgxLedgerRepository(dbPool),
		BalanceRepo:  newPgxBalanceRepository(dbPool),
		DocumentRepo: newPgxDocumentRepository(dbPool),
	}
}
