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

// PgxCompanyRepository reads per-company currency and rounding configuration.
type PgxCompanyRepository struct {
	BaseRepository
}

func newPgxCompanyRepository(pool *pgxpool.Pool) portsrepo.CompanyRepositoryFacade {
	return &PgxCompanyRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CompanyRepositoryFacade = (*PgxCompanyRepository)(nil)

// companyCurrencyQuery resolves the default and report currencies of a
// company. A global currency (company_id NULL) carrying the flag is used when
// the company has no row of its own.
const companyCurrencyQuery = `
	SELECT c.id AS company_id,
		(SELECT cur.id FROM currencies cur
			WHERE (cur.company_id = c.id OR cur.company_id IS NULL) AND cur.is_default
			ORDER BY cur.company_id NULLS LAST, cur.id LIMIT 1) AS default_currency_id,
		(SELECT cur.id FROM currencies cur
			WHERE (cur.company_id = c.id OR cur.company_id IS NULL) AND cur.is_report
			ORDER BY cur.company_id NULLS LAST, cur.id LIMIT 1) AS report_currency_id
	FROM companies c
	WHERE c.id = $1;
`

// FindCompanyContext loads the currencies flagged default and report for the
// company together with its rounding policies. A company with no default
// currency is returned as is; the caller validates it.
func (r *PgxCompanyRepository) FindCompanyContext(ctx context.Context, companyID string) (*domain.CompanyContext, error) {
	var currencies models.CompanyCurrencies
	err := r.Pool.QueryRow(ctx, companyCurrencyQuery, companyID).Scan(
		&currencies.CompanyID, &currencies.DefaultCurrencyID, &currencies.ReportCurrencyID,
	)
	if err != nil {
		return nil, translateError("failed to find company "+companyID, err)
	}

	policyQuery := `
		SELECT company_id, context, decimals, enabled, direction, custom_threshold
		FROM company_rounding_policies
		WHERE company_id = $1;
	`
	rows, err := r.Pool.Query(ctx, policyQuery, companyID)
	if err != nil {
		return nil, translateError("failed to query rounding policies", err)
	}
	policies, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.RoundingPolicy])
	if err != nil {
		return nil, translateError("failed to scan rounding policies", err)
	}

	cc := mapping.ToDomainCompanyContext(currencies, policies)
	return &cc, nil
}

// ListCompanyIDs returns every company id in ascending order.
func (r *PgxCompanyRepository) ListCompanyIDs(ctx context.Context) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id FROM companies ORDER BY id;`)
	if err != nil {
		return nil, translateError("failed to list companies", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, translateError("failed to scan companies", err)
	}
	return ids, nil
}
