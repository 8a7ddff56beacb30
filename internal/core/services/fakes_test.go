package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/bizledger/internal/apperrors"
	"github.com/SscSPs/bizledger/internal/core/domain"
	"github.com/SscSPs/bizledger/internal/utils/accounting"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory stand-in for the pgsql repositories. Writes made
// through a fakeTx are staged and only become visible on Commit; row locks
// are real mutexes held until the transaction ends.
type fakeStore struct {
	mu         sync.Mutex
	txns       map[string]domain.Transaction
	clients    map[string]domain.Client
	registers  map[string]domain.CashRegister
	currencies map[string]domain.Currency
	history    []domain.CurrencyHistory
	companies  map[string]domain.CompanyContext
	companyIDs []string
	documents  []domain.SourceDocument

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// fault injection
	conflictsLeft int
	failApply     error
	failSet       map[domain.BalanceTarget]error
	historyCalls  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		txns:       make(map[string]domain.Transaction),
		clients:    make(map[string]domain.Client),
		registers:  make(map[string]domain.CashRegister),
		currencies: make(map[string]domain.Currency),
		companies:  make(map[string]domain.CompanyContext),
		locks:      make(map[string]*sync.Mutex),
		failSet:    make(map[domain.BalanceTarget]error),
	}
}

type fakeTx struct {
	pgx.Tx // nil; any call the fake does not expect panics
	store  *fakeStore
	held   map[string]*sync.Mutex
	writes map[string]domain.Transaction
	deltas map[domain.BalanceTarget]decimal.Decimal
	sets   map[domain.BalanceTarget]decimal.Decimal
	closed bool
}

func (s *fakeStore) asTx(tx pgx.Tx) *fakeTx { return tx.(*fakeTx) }

func (s *fakeStore) lockRow(tx *fakeTx, key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	s.locksMu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.locksMu.Unlock()
	m.Lock()
	tx.held[key] = m
}

func (tx *fakeTx) release() {
	for _, m := range tx.held {
		m.Unlock()
	}
	tx.held = map[string]*sync.Mutex{}
	tx.closed = true
}

// --- TransactionManager ---

func (s *fakeStore) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &fakeTx{
		store:  s,
		held:   map[string]*sync.Mutex{},
		writes: map[string]domain.Transaction{},
		deltas: map[domain.BalanceTarget]decimal.Decimal{},
		sets:   map[domain.BalanceTarget]decimal.Decimal{},
	}, nil
}

func (s *fakeStore) Commit(_ context.Context, t pgx.Tx) error {
	tx := s.asTx(t)
	s.mu.Lock()
	for id, txn := range tx.writes {
		s.txns[id] = txn
	}
	for target, amount := range tx.sets {
		s.setBalanceLocked(target, amount)
	}
	for target, delta := range tx.deltas {
		s.setBalanceLocked(target, s.balanceLocked(target).Add(delta))
	}
	s.mu.Unlock()
	tx.release()
	return nil
}

func (s *fakeStore) Rollback(_ context.Context, t pgx.Tx) error {
	tx := s.asTx(t)
	if !tx.closed {
		tx.release()
	}
	return nil
}

// --- LedgerReader / LedgerWriter ---

func (s *fakeStore) FindTransactionByID(_ context.Context, companyID, id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok || txn.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (s *fakeStore) SumActiveEntries(_ context.Context, filter domain.EntryFilter) (domain.EntrySums, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return accounting.SumEntries(s.allLocked(nil), filter), nil
}

func (s *fakeStore) ListActiveEntries(_ context.Context, companyID, afterID string, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, txn := range s.allLocked(nil) {
		if txn.CompanyID == companyID && !txn.IsDeleted && txn.ID > afterID {
			out = append(out, txn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) UpdateCurrencyFields(_ context.Context, txn domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.txns[txn.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	cur.DefRate, cur.DefAmount, cur.RepRate, cur.RepAmount = txn.DefRate, txn.DefAmount, txn.RepRate, txn.RepAmount
	s.txns[txn.ID] = cur
	return nil
}

// --- LedgerTransactionSupport ---

func (s *fakeStore) FindTransactionForUpdate(_ context.Context, t pgx.Tx, companyID, id string) (*domain.Transaction, error) {
	tx := s.asTx(t)
	s.lockRow(tx, "txn:"+id)
	txn, ok := s.visible(tx, id)
	if !ok || txn.CompanyID != companyID {
		return nil, apperrors.ErrNotFound
	}
	return &txn, nil
}

func (s *fakeStore) FindAutomaticDebtForUpdate(_ context.Context, t pgx.Tx, companyID string, source domain.SourceRef) (*domain.Transaction, error) {
	tx := s.asTx(t)
	// Serialises writers of the same document the way the unique index does.
	s.lockRow(tx, "auto:"+companyID+":"+source.String())
	s.mu.Lock()
	rows := s.allLocked(tx)
	s.mu.Unlock()
	for _, txn := range rows {
		if isAutomaticDebt(txn, companyID, source) {
			s.lockRow(tx, "txn:"+txn.ID)
			return &txn, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *fakeStore) InsertTransactionInTx(_ context.Context, t pgx.Tx, txn domain.Transaction) error {
	tx := s.asTx(t)
	if isAutomaticDebt(txn, txn.CompanyID, txn.Source) {
		s.mu.Lock()
		rows := s.allLocked(tx)
		s.mu.Unlock()
		for _, other := range rows {
			if other.ID != txn.ID && isAutomaticDebt(other, txn.CompanyID, txn.Source) {
				return apperrors.NewAppError(apperrors.ErrDuplicate, "automatic debt exists", nil)
			}
		}
	}
	tx.writes[txn.ID] = txn
	return nil
}

func (s *fakeStore) UpdateTransactionInTx(_ context.Context, t pgx.Tx, txn domain.Transaction) error {
	tx := s.asTx(t)
	current, ok := s.visible(tx, txn.ID)
	if !ok {
		return apperrors.ErrNotFound
	}
	// Columns the UPDATE statement leaves alone.
	txn.CompanyID = current.CompanyID
	txn.Source = current.Source
	txn.UserID = current.UserID
	txn.IsDeleted = current.IsDeleted
	txn.CreatedAt, txn.CreatedBy = current.CreatedAt, current.CreatedBy
	tx.writes[txn.ID] = txn
	return nil
}

func (s *fakeStore) MarkTransactionDeletedInTx(_ context.Context, t pgx.Tx, id, userID string, now time.Time) error {
	tx := s.asTx(t)
	txn, ok := s.visible(tx, id)
	if !ok {
		return apperrors.ErrNotFound
	}
	txn.IsDeleted = true
	txn.Touch(userID, now)
	tx.writes[id] = txn
	return nil
}

func (s *fakeStore) SumActiveEntriesInTx(_ context.Context, t pgx.Tx, filter domain.EntryFilter) (domain.EntrySums, error) {
	tx := s.asTx(t)
	s.mu.Lock()
	defer s.mu.Unlock()
	return accounting.SumEntries(s.allLocked(tx), filter), nil
}

// --- BalanceReader / BalanceTransactionSupport ---

func (s *fakeStore) FindClient(_ context.Context, companyID, id string) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok || c.CompanyID != companyID {
		return nil, apperrors.NewNotFoundError("client not found")
	}
	return &c, nil
}

func (s *fakeStore) FindCashRegister(_ context.Context, companyID, id string) (*domain.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registers[id]
	if !ok || r.CompanyID != companyID {
		return nil, apperrors.NewNotFoundError("cash register not found")
	}
	return &r, nil
}

func (s *fakeStore) ListClients(_ context.Context, companyID, afterID string, limit int) ([]domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Client
	for _, c := range s.clients {
		if c.CompanyID == companyID && c.ID > afterID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) ListCashRegisters(_ context.Context, companyID, afterID string, limit int) ([]domain.CashRegister, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CashRegister
	for _, r := range s.registers {
		if r.CompanyID == companyID && r.ID > afterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeStore) LockBalancesForUpdate(_ context.Context, t pgx.Tx, companyID string, targets []domain.BalanceTarget) (map[domain.BalanceTarget]domain.Balance, error) {
	tx := s.asTx(t)
	s.mu.Lock()
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		s.mu.Unlock()
		return nil, apperrors.NewConflictError("lock timeout", nil)
	}
	s.mu.Unlock()

	sorted := append([]domain.BalanceTarget(nil), targets...)
	accounting.SortTargets(sorted)
	out := make(map[domain.BalanceTarget]domain.Balance, len(sorted))
	for _, target := range sorted {
		s.lockRow(tx, target.String())
		s.mu.Lock()
		switch target.Kind {
		case domain.BalanceClient:
			if c, ok := s.clients[target.ID]; ok && c.CompanyID == companyID {
				out[target] = domain.Balance{Target: target, CompanyID: companyID, Name: c.Name, Amount: c.Balance}
			}
		case domain.BalanceCash:
			if r, ok := s.registers[target.ID]; ok && r.CompanyID == companyID {
				out[target] = domain.Balance{Target: target, CompanyID: companyID, Name: r.Name, CurrencyID: r.CurrencyID, Amount: r.Balance}
			}
		}
		s.mu.Unlock()
	}
	return out, nil
}

func (s *fakeStore) ApplyBalanceDeltasInTx(_ context.Context, t pgx.Tx, deltas map[domain.BalanceTarget]decimal.Decimal) error {
	tx := s.asTx(t)
	if s.failApply != nil {
		return s.failApply
	}
	for target, delta := range deltas {
		tx.deltas[target] = tx.deltas[target].Add(delta)
	}
	return nil
}

func (s *fakeStore) SetBalanceInTx(_ context.Context, t pgx.Tx, target domain.BalanceTarget, amount decimal.Decimal) error {
	tx := s.asTx(t)
	if err := s.failSet[target]; err != nil {
		return err
	}
	tx.sets[target] = amount
	delete(tx.deltas, target)
	return nil
}

// --- CurrencyReader / CompanyReader / DocumentReader ---

func (s *fakeStore) FindCurrencyByID(_ context.Context, id string) (*domain.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.currencies[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("currency not found")
	}
	return &c, nil
}

func (s *fakeStore) ListCurrencyHistory(_ context.Context, currencyID, companyID string) ([]domain.CurrencyHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyCalls++
	var out []domain.CurrencyHistory
	for _, h := range s.history {
		if h.CurrencyID == currencyID && (h.CompanyID == nil || *h.CompanyID == companyID) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) FindCompanyContext(_ context.Context, companyID string) (*domain.CompanyContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc, ok := s.companies[companyID]
	if !ok {
		return nil, apperrors.NewNotFoundError("company not found")
	}
	return &cc, nil
}

func (s *fakeStore) ListCompanyIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.companyIDs...), nil
}

func (s *fakeStore) ListUncoveredDebtDocuments(_ context.Context, companyID, clientID string) ([]domain.SourceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SourceDocument
	for _, d := range s.documents {
		if d.CompanyID == companyID && d.ClientID == clientID {
			out = append(out, d)
		}
	}
	return out, nil
}

// --- helpers ---

// allLocked returns committed rows overlaid with the staged rows of tx. s.mu must be held.
func (s *fakeStore) allLocked(tx *fakeTx) []domain.Transaction {
	merged := make(map[string]domain.Transaction, len(s.txns))
	for id, txn := range s.txns {
		merged[id] = txn
	}
	if tx != nil {
		for id, txn := range tx.writes {
			merged[id] = txn
		}
	}
	out := make([]domain.Transaction, 0, len(merged))
	for _, txn := range merged {
		out = append(out, txn)
	}
	return out
}

func (s *fakeStore) visible(tx *fakeTx, id string) (domain.Transaction, bool) {
	if txn, ok := tx.writes[id]; ok {
		return txn, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	return txn, ok
}

func (s *fakeStore) balanceLocked(target domain.BalanceTarget) decimal.Decimal {
	if target.Kind == domain.BalanceClient {
		return s.clients[target.ID].Balance
	}
	return s.registers[target.ID].Balance
}

func (s *fakeStore) setBalanceLocked(target domain.BalanceTarget, amount decimal.Decimal) {
	if target.Kind == domain.BalanceClient {
		c := s.clients[target.ID]
		c.Balance = amount
		s.clients[target.ID] = c
		return
	}
	r := s.registers[target.ID]
	r.Balance = amount
	s.registers[target.ID] = r
}

func (s *fakeStore) clientBalance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[id].Balance
}

func (s *fakeStore) cashBalance(id string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers[id].Balance
}

func (s *fakeStore) seedTxn(txn domain.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns[txn.ID] = txn
}

func (s *fakeStore) countRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

func (s *fakeStore) activeRows() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, txn := range s.txns {
		if !txn.IsDeleted {
			out = append(out, txn)
		}
	}
	return out
}

func isAutomaticDebt(txn domain.Transaction, companyID string, source domain.SourceRef) bool {
	return !txn.IsDeleted && txn.IsDebt && txn.Type == domain.Income &&
		txn.CompanyID == companyID && txn.Source == source && source.Kind != domain.SourceManual
}

// --- fixture ---

const (
	companyID = "co-1"
	uzs       = "uzs" // base
	usd       = "usd" // report
	eur       = "eur"
	clientID  = "client-1"
	cashUZS   = "cash-uzs"
	cashUSD   = "cash-usd"
)

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	apr1 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func strPtr(s string) *string      { return &s }

func twoDecimals() domain.RoundingPolicy {
	return domain.RoundingPolicy{Decimals: 2, Enabled: true, Direction: domain.RoundStandard}
}

func companyContext() domain.CompanyContext {
	return domain.CompanyContext{
		CompanyID:         companyID,
		DefaultCurrencyID: uzs,
		ReportCurrencyID:  usd,
		Rounding: map[domain.RoundingContext]domain.RoundingPolicy{
			domain.RoundOrders:       twoDecimals(),
			domain.RoundSales:        twoDecimals(),
			domain.RoundReceipts:     twoDecimals(),
			domain.RoundTransactions: twoDecimals(),
		},
	}
}

// seededStore holds one company with base UZS, report USD, one client at 0
// and two cash registers: UZS at 1000 and USD at 0. USD is 12000 globally
// from Jan 1 and 12500 for the company from Mar 1; EUR is 13000 from Jan 1.
func seededStore() *fakeStore {
	s := newFakeStore()
	co := companyID
	s.companies[companyID] = companyContext()
	s.companyIDs = []string{companyID}
	s.currencies[uzs] = domain.Currency{ID: uzs, Code: "UZS", IsDefault: true}
	s.currencies[usd] = domain.Currency{ID: usd, Code: "USD", IsReport: true}
	s.currencies[eur] = domain.Currency{ID: eur, Code: "EUR"}
	s.history = []domain.CurrencyHistory{
		{ID: "h1", CurrencyID: usd, ExchangeRate: dec("12000"), StartDate: jan1},
		{ID: "h2", CurrencyID: usd, CompanyID: &co, ExchangeRate: dec("12500"), StartDate: mar1},
		{ID: "h3", CurrencyID: eur, ExchangeRate: dec("13000"), StartDate: jan1},
	}
	s.clients[clientID] = domain.Client{ID: clientID, CompanyID: companyID, Name: "Acme", Balance: decimal.Zero}
	s.registers[cashUZS] = domain.CashRegister{ID: cashUZS, CompanyID: companyID, Name: "Main till", CurrencyID: uzs, Balance: dec("1000")}
	s.registers[cashUSD] = domain.CashRegister{ID: cashUSD, CompanyID: companyID, Name: "Dollar safe", CurrencyID: usd, Balance: decimal.Zero}
	return s
}
