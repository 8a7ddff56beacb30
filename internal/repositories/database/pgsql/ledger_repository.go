package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	"github.com/SscSPs/bizledger/internal/models"
	"github.com/SscSPs/bizledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, company_id, type, is_debt, amount, orig_amount, currency_id,
	rep_rate, rep_amount, def_rate, def_amount, client_id, cash_id, source_type, source_id,
	category_id, project_id, user_id, note, date, is_deleted,
	created_at, created_by, last_updated_at, last_updated_by`

// PgxLedgerRepository stores ledger entries in the transactions table.
type PgxLedgerRepository struct {
	BaseRepository
}

func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryWithTx {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.LedgerRepositoryWithTx = (*PgxLedgerRepository)(nil)

func (r *PgxLedgerRepository) findOne(ctx context.Context, q querier, query string, args ...any) (*domain.Transaction, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, translateError("failed to query transaction", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, translateError("failed to find transaction", err)
	}
	txn := mapping.ToDomainTransaction(m)
	return &txn, nil
}

// FindTransactionByID retrieves an entry, deleted or not.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, companyID, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE company_id = $1 AND id = $2;`
	return r.findOne(ctx, r.Pool, query, companyID, transactionID)
}

// FindTransactionForUpdate selects an entry and locks its row.
func (r *PgxLedgerRepository) FindTransactionForUpdate(ctx context.Context, tx pgx.Tx, companyID, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE company_id = $1 AND id = $2 FOR UPDATE;`
	return r.findOne(ctx, tx, query, companyID, transactionID)
}

// FindAutomaticDebtForUpdate locks the active income debt entry of a source document.
func (r *PgxLedgerRepository) FindAutomaticDebtForUpdate(ctx context.Context, tx pgx.Tx, companyID string, source domain.SourceRef) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE company_id = $1 AND source_type = $2 AND source_id = $3
			AND type = 1 AND is_debt AND NOT is_deleted
		FOR UPDATE;
	`
	return r.findOne(ctx, tx, query, companyID, string(source.Kind), source.ID)
}

// InsertTransactionInTx persists a new entry. A second automatic debt row for
// the same document violates uq_transactions_automatic_debt and is reported
// as ErrDuplicate.
func (r *PgxLedgerRepository) InsertTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error {
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25);
	`
	_, err := tx.Exec(ctx, query,
		m.ID, m.CompanyID, m.Type, m.IsDebt, m.Amount, m.OrigAmount, m.CurrencyID,
		m.RepRate, m.RepAmount, m.DefRate, m.DefAmount, m.ClientID, m.CashID, m.SourceType, m.SourceID,
		m.CategoryID, m.ProjectID, m.UserID, m.Note, m.Date, m.IsDeleted,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return translateError(fmt.Sprintf("failed to insert transaction %s", m.ID), err)
	}
	return nil
}

// UpdateTransactionInTx overwrites the mutable fields of an entry.
func (r *PgxLedgerRepository) UpdateTransactionInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error {
	m := mapping.ToModelTransaction(txn)
	query := `
		UPDATE transactions SET
			type = $3, is_debt = $4, amount = $5, orig_amount = $6, currency_id = $7,
			rep_rate = $8, rep_amount = $9, def_rate = $10, def_amount = $11,
			client_id = $12, cash_id = $13, category_id = $14, project_id = $15,
			note = $16, date = $17, last_updated_at = $18, last_updated_by = $19
		WHERE company_id = $1 AND id = $2;
	`
	cmdTag, err := tx.Exec(ctx, query,
		m.CompanyID, m.ID, m.Type, m.IsDebt, m.Amount, m.OrigAmount, m.CurrencyID,
		m.RepRate, m.RepAmount, m.DefRate, m.DefAmount,
		m.ClientID, m.CashID, m.CategoryID, m.ProjectID,
		m.Note, m.Date, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return translateError(fmt.Sprintf("failed to update transaction %s", m.ID), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("transaction " + m.ID + " not found")
	}
	return nil
}

// MarkTransactionDeletedInTx soft-deletes an entry.
func (r *PgxLedgerRepository) MarkTransactionDeletedInTx(ctx context.Context, tx pgx.Tx, transactionID string, userID string, now time.Time) error {
	query := `
		UPDATE transactions
		SET is_deleted = TRUE, last_updated_at = $2, last_updated_by = $3
		WHERE id = $1;
	`
	cmdTag, err := tx.Exec(ctx, query, transactionID, now, userID)
	if err != nil {
		return translateError("failed to delete transaction "+transactionID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("transaction " + transactionID + " not found")
	}
	return nil
}

// UpdateCurrencyFields overwrites rep/def rate and amount columns of one entry.
func (r *PgxLedgerRepository) UpdateCurrencyFields(ctx context.Context, txn domain.Transaction) error {
	query := `
		UPDATE transactions
		SET rep_rate = $3, rep_amount = $4, def_rate = $5, def_amount = $6
		WHERE company_id = $1 AND id = $2;
	`
	cmdTag, err := r.Pool.Exec(ctx, query, txn.CompanyID, txn.ID, txn.RepRate, txn.RepAmount, txn.DefRate, txn.DefAmount)
	if err != nil {
		return translateError("failed to update currency fields of "+txn.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("transaction " + txn.ID + " not found")
	}
	return nil
}

// SumActiveEntries totals active entries matching filter by direction.
func (r *PgxLedgerRepository) SumActiveEntries(ctx context.Context, filter domain.EntryFilter) (domain.EntrySums, error) {
	return r.sumActiveEntries(ctx, r.Pool, filter)
}

// SumActiveEntriesInTx is SumActiveEntries reading through tx.
func (r *PgxLedgerRepository) SumActiveEntriesInTx(ctx context.Context, tx pgx.Tx, filter domain.EntryFilter) (domain.EntrySums, error) {
	return r.sumActiveEntries(ctx, tx, filter)
}

func (r *PgxLedgerRepository) sumActiveEntries(ctx context.Context, q querier, filter domain.EntryFilter) (domain.EntrySums, error) {
	var column string
	switch filter.Target.Kind {
	case domain.BalanceClient:
		column = "client_id"
	case domain.BalanceCash:
		column = "cash_id"
	default:
		return domain.EntrySums{}, apperrors.NewValidationError("unknown balance kind " + string(filter.Target.Kind))
	}

	query := `
		SELECT
			COALESCE(SUM(CASE WHEN type = 1 THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN type = 0 THEN amount ELSE 0 END), 0) AS expense,
			COUNT(*) AS count
		FROM transactions
		WHERE company_id = $1 AND NOT is_deleted AND ` + column + ` = $2
			AND ($3::boolean IS NULL OR is_debt = $3)
			AND ($4::timestamptz IS NULL OR date < $4);
	`
	var sums domain.EntrySums
	err := q.QueryRow(ctx, query, filter.CompanyID, filter.Target.ID, filter.IsDebt, filter.Before).
		Scan(&sums.Income, &sums.Expense, &sums.Count)
	if err != nil {
		return domain.EntrySums{}, translateError("failed to sum entries of "+filter.Target.String(), err)
	}
	return sums, nil
}

// ListActiveEntries returns up to limit active entries with id > afterID, ordered by id.
func (r *PgxLedgerRepository) ListActiveEntries(ctx context.Context, companyID string, afterID string, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE company_id = $1 AND NOT is_deleted AND id > $2
		ORDER BY id
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, afterID, limit)
	if err != nil {
		return nil, translateError("failed to list transactions", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Transaction])
	if err != nil {
		return nil, translateError("failed to scan transactions", err)
	}
	return mapping.ToDomainTransactionSlice(ms), nil
}
