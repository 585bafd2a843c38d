package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// maxTransactItems is the TransactWriteItems limit.
const maxTransactItems = 100

// UnitOfWork implements ports.UnitOfWork with TransactWriteItems.
type UnitOfWork struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewUnitOfWork creates a new UnitOfWork
func NewUnitOfWork(client API, tableName string, logger *zap.Logger) *UnitOfWork {
	return &UnitOfWork{client: client, tableName: tableName, logger: logger}
}

// Begin starts a new transaction
func (u *UnitOfWork) Begin(ctx context.Context) (ports.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &transaction{uow: u}, nil
}

type itemKind int

const (
	kindDebit itemKind = iota
	kindRecord
)

type transaction struct {
	uow   *UnitOfWork
	items []types.TransactWriteItem
	kinds []itemKind
	err   error
	done  bool
}

func (t *transaction) Debit(identity valueobjects.Identity, expected, amount valueobjects.Credits) {
	if t.err != nil {
		return
	}
	update, err := debitUpdate(t.uow.tableName, identity, expected, amount)
	if err != nil {
		t.err = err
		return
	}
	t.items = append(t.items, types.TransactWriteItem{Update: update})
	t.kinds = append(t.kinds, kindDebit)
}

func (t *transaction) Append(record *entities.OperationRecord) {
	if t.err != nil {
		return
	}
	put, err := recordPut(t.uow.tableName, record)
	if err != nil {
		t.err = err
		return
	}
	t.items = append(t.items, types.TransactWriteItem{Put: put})
	t.kinds = append(t.kinds, kindRecord)
}

// Commit executes all registered writes atomically.
func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true
	if t.err != nil {
		return t.err
	}
	if len(t.items) == 0 {
		return nil
	}
	if len(t.items) > maxTransactItems {
		return fmt.Errorf("transaction exceeds %d items: %d", maxTransactItems, len(t.items))
	}

	_, err := t.uow.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: t.items,
	})
	if err == nil {
		return nil
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		return t.cancellationCause(tce)
	}
	var tip *types.TransactionInProgressException
	if errors.As(err, &tip) {
		return ports.ErrBalanceConflict
	}
	return classify(err, "commit transaction")
}

// cancellationCause maps per-item cancellation reasons, which arrive in
// request order, back to the write that failed.
func (t *transaction) cancellationCause(tce *types.TransactionCanceledException) error {
	for i, reason := range tce.CancellationReasons {
		if reason.Code == nil || i >= len(t.kinds) {
			continue
		}
		switch *reason.Code {
		case "ConditionalCheckFailed":
			if t.kinds[i] == kindRecord {
				return ports.ErrRecordExists
			}
			if len(reason.Item) == 0 {
				return ports.ErrAccountNotFound
			}
			return ports.ErrBalanceConflict
		case "TransactionConflict":
			return ports.ErrBalanceConflict
		case "ThrottlingError", "ProvisionedThroughputExceeded":
			return classify(&types.ProvisionedThroughputExceededException{Message: reason.Message}, "commit transaction")
		}
	}
	t.uow.logger.Warn("Transaction canceled without a known reason", zap.Error(tce))
	return fmt.Errorf("transaction canceled: %w", tce)
}

// Rollback discards buffered writes. Nothing reaches the table before Commit.
func (t *transaction) Rollback() error {
	t.done = true
	t.items = nil
	t.kinds = nil
	return nil
}
