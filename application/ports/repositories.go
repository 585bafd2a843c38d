package ports

import (
	"context"
	"errors"
	"time"

	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/events"
)

// Store-level sentinel errors. Adapters return these (possibly wrapped) so
// the application layer can map them without knowing the backend.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrRecordNotFound  = errors.New("record not found")
	// ErrBalanceConflict means the stored balance no longer matches the
	// balance the debit was computed from, or would drop below zero.
	ErrBalanceConflict = errors.New("balance changed since it was read")
	// ErrRecordExists means a record with the same owner and timestamp exists.
	ErrRecordExists  = errors.New("record already exists")
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// CreditLedger reads and debits account balances.
type CreditLedger interface {
	// GetBalance returns the account or ErrAccountNotFound.
	GetBalance(ctx context.Context, identity valueobjects.Identity) (*entities.Account, error)

	// Debit subtracts amount with a single conditional write. It succeeds
	// only while the stored balance equals expected and covers amount;
	// otherwise it returns ErrBalanceConflict. Returns the new balance.
	Debit(ctx context.Context, identity valueobjects.Identity, expected, amount valueobjects.Credits) (valueobjects.Credits, error)
}

// SortOrder orders history by record timestamp.
type SortOrder string

const (
	SortAscending  SortOrder = "ASC"
	SortDescending SortOrder = "DESC"
)

// HistoryQuery selects one page of an owner's records.
type HistoryQuery struct {
	Limit          int
	Cursor         string
	Order          SortOrder
	ExcludeRemoved bool
}

// HistoryPage is one page of records. NextCursor is empty on the last page.
type HistoryPage struct {
	Records    []*entities.OperationRecord
	NextCursor string
}

// AuditLog stores operation records keyed by (owner, timestamp).
type AuditLog interface {
	// Append stores a new record, or returns ErrRecordExists.
	Append(ctx context.Context, record *entities.OperationRecord) error

	// Query returns records newer than the record floor, ordered by timestamp.
	Query(ctx context.Context, owner valueobjects.Identity, q HistoryQuery) (*HistoryPage, error)

	// SoftRemove flags a record as removed, or returns ErrRecordNotFound.
	SoftRemove(ctx context.Context, owner valueobjects.Identity, timestamp int64) error
}

// UnitOfWork starts transactions that settle an operation atomically.
type UnitOfWork interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction buffers a conditional debit and a record append. Commit
// applies both or neither and reports ErrBalanceConflict or
// ErrRecordExists when the matching condition failed.
type Transaction interface {
	Debit(identity valueobjects.Identity, expected, amount valueobjects.Credits)
	Append(record *entities.OperationRecord)
	Commit(ctx context.Context) error
	Rollback() error
}

// CostSource prices operations. Unknown names wrap operations.ErrUnknownOperation.
type CostSource interface {
	Cost(ctx context.Context, name string) (valueobjects.Credits, error)
}

// EventPublisher handles publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Clock supplies record timestamps in milliseconds since the epoch.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) NowMillis() int64 { return time.Now().UnixMilli() }

// Metrics records per-operation outcomes.
type Metrics interface {
	RecordOperation(ctx context.Context, operation, outcome string, cost valueobjects.Credits, duration time.Duration)
}

// Cache defines the interface for caching
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Outcomes reported to Metrics.
const (
	OutcomeSuccess      = "success"
	OutcomePrecondition = "precondition_failed"
	OutcomeNotFound     = "not_found"
	OutcomeUnavailable  = "unavailable"
	OutcomeInternal     = "internal"
)
