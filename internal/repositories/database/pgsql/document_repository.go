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

// PgxDocumentRepository reads orders, sales and warehouse receipts.
type PgxDocumentRepository struct {
	BaseRepository
}

func newPgxDocumentRepository(pool *pgxpool.Pool) portsrepo.DocumentReader {
	return &PgxDocumentRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.DocumentReader = (*PgxDocumentRepository)(nil)

// ListUncoveredDebtDocuments returns active documents of a client paid by no
// cash register and carrying no active automatic debt entry.
func (r *PgxDocumentRepository) ListUncoveredDebtDocuments(ctx context.Context, companyID, clientID string) ([]domain.SourceDocument, error) {
	query := `
		WITH docs AS (
			SELECT 'order' AS source_type, id, company_id, client_id, currency_id, total, date
			FROM orders
			WHERE company_id = $1 AND client_id = $2 AND cash_id IS NULL AND NOT is_deleted
			UNION ALL
			SELECT 'sale', id, company_id, client_id, currency_id, total, date
			FROM sales
			WHERE company_id = $1 AND client_id = $2 AND cash_id IS NULL AND NOT is_deleted
			UNION ALL
			SELECT 'receipt', id, company_id, client_id, currency_id, total, date
			FROM wh_receipts
			WHERE company_id = $1 AND client_id = $2 AND cash_id IS NULL AND NOT is_deleted
		)
		SELECT d.source_type, d.id, d.company_id, d.client_id, d.currency_id, d.total, d.date
		FROM docs d
		WHERE NOT EXISTS (
			SELECT 1 FROM transactions t
			WHERE t.company_id = d.company_id AND t.source_type = d.source_type AND t.source_id = d.id
				AND t.type = 1 AND t.is_debt AND NOT t.is_deleted
		)
		ORDER BY d.date, d.source_type, d.id;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, clientID)
	if err != nil {
		return nil, translateError("failed to query uncovered documents", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.SourceDocument])
	if err != nil {
		return nil, translateError("failed to scan uncovered documents", err)
	}
	docs := make([]domain.SourceDocument, len(ms))
	for i, m := range ms {
		docs[i] = mapping.ToDomainSourceDocument(m)
	}
	return docs, nil
}
