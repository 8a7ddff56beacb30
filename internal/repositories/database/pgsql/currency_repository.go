package pgsql

import (
	"context"

	"github.com/SscSPs/bizledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	"github.com/SscSPs/bizledger/internal/models"
	"github.com/SscSPs/bizledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxCurrencyRepository reads currencies and their rate history.
type PgxCurrencyRepository struct {
	BaseRepository
}

func newPgxCurrencyRepository(pool *pgxpool.Pool) portsrepo.CurrencyRepositoryFacade {
	return &PgxCurrencyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CurrencyRepositoryFacade = (*PgxCurrencyRepository)(nil)

// FindCurrencyByID retrieves a specific currency by its id.
func (r *PgxCurrencyRepository) FindCurrencyByID(ctx context.Context, currencyID string) (*domain.Currency, error) {
	query := `
		SELECT id, company_id, code, symbol, name, is_default, is_report
		FROM currencies
		WHERE id = $1;
	`
	var m models.Currency
	err := r.Pool.QueryRow(ctx, query, currencyID).Scan(
		&m.ID, &m.CompanyID, &m.Code, &m.Symbol, &m.Name, &m.IsDefault, &m.IsReport,
	)
	if err != nil {
		return nil, translateError("failed to find currency "+currencyID, err)
	}
	currency := mapping.ToDomainCurrency(m)
	return &currency, nil
}

// ListCurrencyHistory returns the company and global rate buckets of a currency.
func (r *PgxCurrencyRepository) ListCurrencyHistory(ctx context.Context, currencyID, companyID string) ([]domain.CurrencyHistory, error) {
	query := `
		SELECT id, currency_id, company_id, exchange_rate, start_date, end_date
		FROM currency_histories
		WHERE currency_id = $1 AND (company_id IS NULL OR company_id = $2)
		ORDER BY start_date, id;
	`
	rows, err := r.Pool.Query(ctx, query, currencyID, companyID)
	if err != nil {
		return nil, translateError("failed to query currency history", err)
	}
	history, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.CurrencyHistory])
	if err != nil {
		return nil, translateError("failed to scan currency history", err)
	}
	return mapping.ToDomainCurrencyHistorySlice(history), nil
}
