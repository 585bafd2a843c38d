// Package memory keeps accounts, prices and records in process memory.
// It backs local runs and tests; every mutation holds one lock, so a
// transaction commit is atomic.
package memory

import (
	"context"
	"fmt"
	"sync"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"
	"mathops/infrastructure/persistence/abstractions"
)

type accountRow struct {
	status  entities.AccountStatus
	balance valueobjects.Credits
}

// Store implements CreditLedger, AuditLog, UnitOfWork and CostSource.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]accountRow
	records  map[string]map[int64]entities.OperationRecord
	costs    map[string]valueobjects.Credits
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]accountRow),
		records:  make(map[string]map[int64]entities.OperationRecord),
		costs:    make(map[string]valueobjects.Credits),
	}
}

// PutAccount creates or replaces an account.
func (s *Store) PutAccount(_ context.Context, account *entities.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.Identity().String()] = accountRow{status: account.Status(), balance: account.Balance()}
	return nil
}

// PutCost sets the price of an operation.
func (s *Store) PutCost(_ context.Context, name string, cost valueobjects.Credits) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costs[name] = cost
	return nil
}

func (s *Store) Cost(_ context.Context, name string) (valueobjects.Credits, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cost, ok := s.costs[name]
	if !ok {
		return valueobjects.Credits{}, fmt.Errorf("%w: no cost configured for %s", operations.ErrUnknownOperation, name)
	}
	return cost, nil
}

func (s *Store) GetBalance(ctx context.Context, identity valueobjects.Identity) (*entities.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	row, ok := s.accounts[identity.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, ports.ErrAccountNotFound
	}
	return entities.NewAccount(identity, row.status, row.balance)
}

func (s *Store) Debit(ctx context.Context, identity valueobjects.Identity, expected, amount valueobjects.Credits) (valueobjects.Credits, error) {
	if err := ctx.Err(); err != nil {
		return valueobjects.Credits{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDebit(identity, expected, amount); err != nil {
		return valueobjects.Credits{}, err
	}
	return s.applyDebit(identity, amount), nil
}

// checkDebit must be called with the lock held.
func (s *Store) checkDebit(identity valueobjects.Identity, expected, amount valueobjects.Credits) error {
	row, ok := s.accounts[identity.String()]
	if !ok {
		return ports.ErrAccountNotFound
	}
	if !row.balance.Equals(expected) || row.balance.LessThan(amount) {
		return ports.ErrBalanceConflict
	}
	return nil
}

func (s *Store) applyDebit(identity valueobjects.Identity, amount valueobjects.Credits) valueobjects.Credits {
	key := identity.String()
	row := s.accounts[key]
	row.balance = row.balance.Sub(amount)
	s.accounts[key] = row
	return row.balance
}

func (s *Store) Append(ctx context.Context, record *entities.OperationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordExists(record) {
		return ports.ErrRecordExists
	}
	s.putRecord(record)
	return nil
}

func (s *Store) recordExists(record *entities.OperationRecord) bool {
	_, exists := s.records[record.Owner.String()][record.Timestamp]
	return exists
}

func (s *Store) putRecord(record *entities.OperationRecord) {
	owner := record.Owner.String()
	if s.records[owner] == nil {
		s.records[owner] = make(map[int64]entities.OperationRecord)
	}
	s.records[owner][record.Timestamp] = *record
}

func (s *Store) Query(ctx context.Context, owner valueobjects.Identity, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	all := make([]*entities.OperationRecord, 0, len(s.records[owner.String()]))
	for _, r := range s.records[owner.String()] {
		rec := r
		all = append(all, &rec)
	}
	s.mu.RUnlock()
	return abstractions.PageRecords(owner, all, q)
}

func (s *Store) SoftRemove(ctx context.Context, owner valueobjects.Identity, timestamp int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[owner.String()][timestamp]
	if !ok {
		return ports.ErrRecordNotFound
	}
	rec.Removed = true
	s.records[owner.String()][timestamp] = rec
	return nil
}

// Begin starts a buffered transaction.
func (s *Store) Begin(ctx context.Context) (ports.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transaction{store: s}, nil
}

type pendingDebit struct {
	identity valueobjects.Identity
	expected valueobjects.Credits
	amount   valueobjects.Credits
}

type transaction struct {
	store   *Store
	debits  []pendingDebit
	records []*entities.OperationRecord
	done    bool
}

func (t *transaction) Debit(identity valueobjects.Identity, expected, amount valueobjects.Credits) {
	t.debits = append(t.debits, pendingDebit{identity: identity, expected: expected, amount: amount})
}

func (t *transaction) Append(record *entities.OperationRecord) {
	t.records = append(t.records, record)
}

// Commit checks every condition before applying anything.
func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for _, d := range t.debits {
		if err := t.store.checkDebit(d.identity, d.expected, d.amount); err != nil {
			return err
		}
	}
	for _, r := range t.records {
		if t.store.recordExists(r) {
			return ports.ErrRecordExists
		}
	}

	for _, d := range t.debits {
		t.store.applyDebit(d.identity, d.amount)
	}
	for _, r := range t.records {
		t.store.putRecord(r)
	}
	t.done = true
	return nil
}

func (t *transaction) Rollback() error {
	t.done = true
	t.debits = nil
	t.records = nil
	return nil
}
