package pgsql

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	portsrepo "github.com/SscSPs/bizledger/internal/core/ports/repositories"
	"github.com/SscSPs/bizledger/internal/models"
	"github.com/SscSPs/bizledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgxBalanceRepository reads and mutates the stored balances of clients and cash registers.
type PgxBalanceRepository struct {
	BaseRepository
}

func newPgxBalanceRepository(pool *pgxpool.Pool) portsrepo.BalanceRepositoryWithTx {
	return &PgxBalanceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BalanceRepositoryWithTx = (*PgxBalanceRepository)(nil)

func balanceTable(kind domain.BalanceKind) (string, error) {
	switch kind {
	case domain.BalanceClient:
		return "clients", nil
	case domain.BalanceCash:
		return "cash_registers", nil
	}
	return "", apperrors.NewValidationError("unknown balance kind " + string(kind))
}

// FindClient retrieves a client of the company.
func (r *PgxBalanceRepository) FindClient(ctx context.Context, companyID, clientID string) (*domain.Client, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, company_id, name, balance FROM clients WHERE company_id = $1 AND id = $2;`, companyID, clientID)
	if err != nil {
		return nil, translateError("failed to query client", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Client])
	if err != nil {
		return nil, translateError("failed to find client "+clientID, err)
	}
	client := mapping.ToDomainClient(m)
	return &client, nil
}

// FindCashRegister retrieves a cash register of the company.
func (r *PgxBalanceRepository) FindCashRegister(ctx context.Context, companyID, cashID string) (*domain.CashRegister, error) {
	query := `SELECT id, company_id, name, currency_id, balance FROM cash_registers WHERE company_id = $1 AND id = $2;`
	rows, err := r.Pool.Query(ctx, query, companyID, cashID)
	if err != nil {
		return nil, translateError("failed to query cash register", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.CashRegister])
	if err != nil {
		return nil, translateError("failed to find cash register "+cashID, err)
	}
	cash := mapping.ToDomainCashRegister(m)
	return &cash, nil
}

// ListClients returns up to limit clients with id > afterID, ordered by id.
func (r *PgxBalanceRepository) ListClients(ctx context.Context, companyID string, afterID string, limit int) ([]domain.Client, error) {
	query := `
		SELECT id, company_id, name, balance
		FROM clients
		WHERE company_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, afterID, limit)
	if err != nil {
		return nil, translateError("failed to list clients", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Client])
	if err != nil {
		return nil, translateError("failed to scan clients", err)
	}
	clients := make([]domain.Client, len(ms))
	for i, m := range ms {
		clients[i] = mapping.ToDomainClient(m)
	}
	return clients, nil
}

// ListCashRegisters returns up to limit cash registers with id > afterID, ordered by id.
func (r *PgxBalanceRepository) ListCashRegisters(ctx context.Context, companyID string, afterID string, limit int) ([]domain.CashRegister, error) {
	query := `
		SELECT id, company_id, name, currency_id, balance
		FROM cash_registers
		WHERE company_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3;
	`
	rows, err := r.Pool.Query(ctx, query, companyID, afterID, limit)
	if err != nil {
		return nil, translateError("failed to list cash registers", err)
	}
	ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.CashRegister])
	if err != nil {
		return nil, translateError("failed to scan cash registers", err)
	}
	registers := make([]domain.CashRegister, len(ms))
	for i, m := range ms {
		registers[i] = mapping.ToDomainCashRegister(m)
	}
	return registers, nil
}

// LockBalancesForUpdate locks client rows first and then cash register rows,
// each set ordered by id, so concurrent postings acquire locks in one global order.
func (r *PgxBalanceRepository) LockBalancesForUpdate(ctx context.Context, tx pgx.Tx, companyID string, targets []domain.BalanceTarget) (map[domain.BalanceTarget]domain.Balance, error) {
	var clientIDs, cashIDs []string
	for _, t := range targets {
		switch t.Kind {
		case domain.BalanceClient:
			clientIDs = append(clientIDs, t.ID)
		case domain.BalanceCash:
			cashIDs = append(cashIDs, t.ID)
		default:
			return nil, apperrors.NewValidationError("unknown balance kind " + string(t.Kind))
		}
	}
	sort.Strings(clientIDs)
	sort.Strings(cashIDs)

	locked := make(map[domain.BalanceTarget]domain.Balance, len(targets))
	if len(clientIDs) > 0 {
		query := `
			SELECT id, company_id, name, balance
			FROM clients
			WHERE company_id = $1 AND id = ANY($2)
			ORDER BY id
			FOR UPDATE;
		`
		rows, err := tx.Query(ctx, query, companyID, clientIDs)
		if err != nil {
			return nil, translateError("failed to lock clients", err)
		}
		ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Client])
		if err != nil {
			return nil, translateError("failed to lock clients", err)
		}
		for _, m := range ms {
			b := mapping.ClientBalance(m)
			locked[b.Target] = b
		}
	}
	if len(cashIDs) > 0 {
		query := `
			SELECT id, company_id, name, currency_id, balance
			FROM cash_registers
			WHERE company_id = $1 AND id = ANY($2)
			ORDER BY id
			FOR UPDATE;
		`
		rows, err := tx.Query(ctx, query, companyID, cashIDs)
		if err != nil {
			return nil, translateError("failed to lock cash registers", err)
		}
		ms, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.CashRegister])
		if err != nil {
			return nil, translateError("failed to lock cash registers", err)
		}
		for _, m := range ms {
			b := mapping.CashRegisterBalance(m)
			locked[b.Target] = b
		}
	}
	return locked, nil
}

// ApplyBalanceDeltasInTx adds each delta to its balance in one batch.
func (r *PgxBalanceRepository) ApplyBalanceDeltasInTx(ctx context.Context, tx pgx.Tx, deltas map[domain.BalanceTarget]decimal.Decimal) error {
	if len(deltas) == 0 {
		return nil
	}
	targets := make([]domain.BalanceTarget, 0, len(deltas))
	for t := range deltas {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Less(targets[j]) })

	batch := &pgx.Batch{}
	for _, t := range targets {
		table, err := balanceTable(t.Kind)
		if err != nil {
			return err
		}
		batch.Queue(`UPDATE `+table+` SET balance = balance + $1 WHERE id = $2;`, deltas[t], t.ID)
	}

	br := tx.SendBatch(ctx, batch)
	for _, t := range targets {
		cmdTag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return translateError(fmt.Sprintf("failed to update balance of %s", t), err)
		}
		if cmdTag.RowsAffected() != 1 {
			_ = br.Close()
			return apperrors.NewNotFoundError(fmt.Sprintf("balance %s not found", t))
		}
	}
	if err := br.Close(); err != nil {
		return translateError("failed to close balance batch", err)
	}
	return nil
}

// SetBalanceInTx overwrites a stored balance.
func (r *PgxBalanceRepository) SetBalanceInTx(ctx context.Context, tx pgx.Tx, target domain.BalanceTarget, amount decimal.Decimal) error {
	table, err := balanceTable(target.Kind)
	if err != nil {
		return err
	}
	cmdTag, err := tx.Exec(ctx, `UPDATE `+table+` SET balance = $1 WHERE id = $2;`, amount, target.ID)
	if err != nil {
		return translateError(fmt.Sprintf("failed to set balance of %s", target), err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("balance %s not found", target))
	}
	return nil
}
