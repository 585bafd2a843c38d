package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mathops/application/commands"
	"mathops/application/ports"
	domainconfig "mathops/domain/config"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/events"
	"mathops/domain/operations"
	appErrors "mathops/pkg/errors"
	"mathops/pkg/observability"

	"go.uber.org/zap"
)

// State is a step of a single operation request.
type State string

const (
	StateParsingInput     State = "ParsingInput"
	StateLoadingAccount   State = "LoadingAccount"
	StateLoadingCost      State = "LoadingCost"
	StateValidatingCredit State = "ValidatingCredit"
	StateExecuting        State = "Executing"
	StateDebiting         State = "Debiting"
	StateRecording        State = "Recording"
	StateDone             State = "Done"
	StateError            State = "Error"
)

// OperationExecutor runs one metered operation: it loads the account and
// price, checks credit, computes the result, then debits the account and
// appends the audit record in a single transaction.
type OperationExecutor struct {
	catalog   *operations.Catalog
	ledger    ports.CreditLedger
	uow       ports.UnitOfWork
	publisher ports.EventPublisher
	metrics   ports.Metrics
	sequencer *TimestampSequencer
	tracer    *observability.Tracer
	cfg       *domainconfig.DomainConfig
	logger    *zap.Logger
}

// NewOperationExecutor creates an executor. publisher, metrics and tracer may be nil.
func NewOperationExecutor(
	catalog *operations.Catalog,
	ledger ports.CreditLedger,
	uow ports.UnitOfWork,
	publisher ports.EventPublisher,
	metrics ports.Metrics,
	sequencer *TimestampSequencer,
	tracer *observability.Tracer,
	cfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *OperationExecutor {
	return &OperationExecutor{
		catalog:   catalog,
		ledger:    ledger,
		uow:       uow,
		publisher: publisher,
		metrics:   metrics,
		sequencer: sequencer,
		tracer:    tracer,
		cfg:       cfg,
		logger:    logger,
	}
}

// execution tracks the state of one request for logging.
type execution struct {
	state  State
	cmd    commands.ExecuteOperationCommand
	logger *zap.Logger
}

func (x *execution) enter(s State) {
	x.logger.Debug("Operation state",
		zap.String("from", string(x.state)),
		zap.String("to", string(s)),
	)
	x.state = s
}

func (x *execution) fail(err error) error {
	x.logger.Debug("Operation state",
		zap.String("from", string(x.state)),
		zap.String("to", string(StateError)),
		zap.Error(err),
	)
	x.state = StateError
	return err
}

// Handle executes the command. Failures before the commit leave no trace
// in the store.
func (e *OperationExecutor) Handle(ctx context.Context, cmd commands.ExecuteOperationCommand) (*commands.ExecuteOperationResult, error) {
	start := time.Now()
	x := &execution{
		state: StateParsingInput,
		cmd:   cmd,
		logger: e.logger.With(
			zap.String("operation", cmd.Operation),
			zap.String("request_id", cmd.RequestID),
		),
	}

	result, cost, err := e.run(ctx, x)
	e.record(ctx, cmd.Operation, cost, time.Since(start), err)
	if err != nil {
		e.tracer.RecordError(ctx, err)
		return nil, x.fail(err)
	}
	x.enter(StateDone)
	return result, nil
}

func (e *OperationExecutor) run(ctx context.Context, x *execution) (*commands.ExecuteOperationResult, valueobjects.Credits, error) {
	cost := valueobjects.ZeroCredits

	identity, err := x.cmd.Parse()
	if err != nil {
		return nil, cost, err
	}
	x.logger = x.logger.With(zap.String("identity", identity.String()))
	e.tracer.AddAnnotation(ctx, "operation", x.cmd.Operation)

	x.enter(StateLoadingAccount)
	account, err := e.loadAccount(ctx, identity)
	if err != nil {
		return nil, cost, err
	}

	x.enter(StateLoadingCost)
	def, err := e.lookup(ctx, x.cmd.Operation)
	if err != nil {
		return nil, cost, err
	}
	cost = def.Cost

	x.enter(StateValidatingCredit)
	balanceAfter, err := validateCredit(account, def.Cost)
	if err != nil {
		return nil, cost, err
	}

	x.enter(StateExecuting)
	value, err := e.execute(ctx, def, x)
	if err != nil {
		return nil, cost, err
	}

	ts, balanceAfter, err := e.settle(ctx, x, identity, account, def, value, balanceAfter)
	if err != nil {
		return nil, cost, err
	}

	x.logger.Info("Operation completed",
		zap.String("cost", def.Cost.String()),
		zap.String("balance_after", balanceAfter.String()),
		zap.Int64("record_timestamp", ts),
	)
	e.publishCompleted(ctx, identity, def, ts, balanceAfter, x)

	return &commands.ExecuteOperationResult{
		Operation:       def.Name,
		Result:          value,
		Cost:            def.Cost,
		BalanceAfter:    balanceAfter,
		RecordTimestamp: ts,
	}, cost, nil
}

func (e *OperationExecutor) loadAccount(ctx context.Context, identity valueobjects.Identity) (*entities.Account, error) {
	var account *entities.Account
	err := e.tracer.TraceFunction(ctx, "LoadAccount", func(ctx context.Context) error {
		storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
		defer cancel()

		var err error
		account, err = e.ledger.GetBalance(storeCtx, identity)
		return err
	})
	if err != nil {
		if errors.Is(err, ports.ErrAccountNotFound) {
			return nil, appErrors.NewNotFoundError("account")
		}
		return nil, commands.MapStoreError(err, "load account")
	}
	return account, nil
}

func (e *OperationExecutor) lookup(ctx context.Context, name string) (operations.Definition, error) {
	storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	def, err := e.catalog.Lookup(storeCtx, name)
	if err != nil {
		if errors.Is(err, operations.ErrUnknownOperation) {
			return operations.Definition{}, appErrors.NewNotFoundError(fmt.Sprintf("operation '%s'", name))
		}
		return operations.Definition{}, commands.MapStoreError(err, "load operation cost")
	}
	return def, nil
}

func validateCredit(account *entities.Account, cost valueobjects.Credits) (valueobjects.Credits, error) {
	after, err := account.BalanceAfter(cost)
	switch {
	case err == nil:
		return after, nil
	case errors.Is(err, entities.ErrAccountInactive):
		return valueobjects.Credits{}, appErrors.NewPreconditionFailedError("account is inactive")
	case errors.Is(err, entities.ErrInsufficientCredits):
		return valueobjects.Credits{}, appErrors.NewPreconditionFailedError("insufficient credits")
	default:
		return valueobjects.Credits{}, appErrors.NewInternalError("credit validation failed").WithCause(err)
	}
}

func (e *OperationExecutor) execute(ctx context.Context, def operations.Definition, x *execution) (valueobjects.Result, error) {
	var value valueobjects.Result
	err := e.tracer.TraceFunction(ctx, "Execute", func(ctx context.Context) error {
		execCtx, cancel := context.WithTimeout(ctx, e.cfg.RandomStringTimeout)
		defer cancel()

		var err error
		value, err = def.Fn(execCtx, x.cmd.Params)
		return err
	})
	if err == nil {
		return value, nil
	}
	if operations.IsDomainError(err) {
		return valueobjects.Result{}, appErrors.NewPreconditionFailedError(err.Error())
	}
	if appErrors.IsAppError(err) {
		return valueobjects.Result{}, err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return valueobjects.Result{}, appErrors.NewUnavailableError(def.Name).WithCause(err)
	}
	return valueobjects.Result{}, appErrors.NewInternalError("operation failed").WithCause(err)
}

// settle commits the debit and the record together. A balance conflict
// reloads the account and re-checks credit; a timestamp collision takes
// the next timestamp. Both retry up to MaxSettleAttempts.
func (e *OperationExecutor) settle(
	ctx context.Context,
	x *execution,
	identity valueobjects.Identity,
	account *entities.Account,
	def operations.Definition,
	value valueobjects.Result,
	balanceAfter valueobjects.Credits,
) (int64, valueobjects.Credits, error) {
	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxSettleAttempts; attempt++ {
		ts := e.sequencer.Next(identity)
		record, err := entities.NewOperationRecord(identity, ts, def.Name, value, balanceAfter, x.cmd.RequestID)
		if err != nil {
			return 0, valueobjects.Credits{}, appErrors.NewInternalError("invalid record").WithCause(err)
		}

		err = e.tracer.TraceFunction(ctx, "Settle", func(ctx context.Context) error {
			return e.commit(ctx, x, identity, account.Balance(), def.Cost, record)
		})
		if err == nil {
			return ts, balanceAfter, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, ports.ErrBalanceConflict):
			x.logger.Warn("Balance changed during settlement; reloading",
				zap.Int("attempt", attempt),
			)
			x.enter(StateLoadingAccount)
			account, err = e.loadAccount(ctx, identity)
			if err != nil {
				return 0, valueobjects.Credits{}, err
			}
			x.enter(StateValidatingCredit)
			balanceAfter, err = validateCredit(account, def.Cost)
			if err != nil {
				return 0, valueobjects.Credits{}, err
			}
		case errors.Is(err, ports.ErrRecordExists):
			x.logger.Warn("Record timestamp collided; retrying with the next timestamp",
				zap.Int("attempt", attempt),
				zap.Int64("timestamp", ts),
			)
		default:
			return 0, valueobjects.Credits{}, commands.MapStoreError(err, "settle operation")
		}
	}

	return 0, valueobjects.Credits{}, appErrors.NewUnavailableError("ledger").
		WithCause(lastErr).
		WithDetails(map[string]interface{}{"attempts": e.cfg.MaxSettleAttempts})
}

func (e *OperationExecutor) commit(
	ctx context.Context,
	x *execution,
	identity valueobjects.Identity,
	expected, cost valueobjects.Credits,
	record *entities.OperationRecord,
) error {
	storeCtx, cancel := context.WithTimeout(ctx, e.cfg.StoreTimeout)
	defer cancel()

	tx, err := e.uow.Begin(storeCtx)
	if err != nil {
		return err
	}

	x.enter(StateDebiting)
	tx.Debit(identity, expected, cost)

	x.enter(StateRecording)
	tx.Append(record)

	if err := tx.Commit(storeCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			x.logger.Error("Rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return nil
}

func (e *OperationExecutor) publishCompleted(
	ctx context.Context,
	identity valueobjects.Identity,
	def operations.Definition,
	ts int64,
	balanceAfter valueobjects.Credits,
	x *execution,
) {
	if e.publisher == nil {
		return
	}
	evt := events.NewOperationCompleted(identity.String(), def.Name, ts,
		def.Cost.String(), balanceAfter.String(), x.cmd.RequestID, time.Now().UTC())
	if err := e.publisher.Publish(ctx, evt); err != nil {
		x.logger.Warn("Failed to publish operation event", zap.Error(err))
	}
}

func (e *OperationExecutor) record(ctx context.Context, operation string, cost valueobjects.Credits, d time.Duration, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordOperation(ctx, operation, Outcome(err), cost, d)
}

// Outcome classifies an executor error for metrics.
func Outcome(err error) string {
	if err == nil {
		return ports.OutcomeSuccess
	}
	switch {
	case appErrors.IsPreconditionFailed(err):
		return ports.OutcomePrecondition
	case appErrors.IsNotFound(err):
		return ports.OutcomeNotFound
	case appErrors.IsUnavailable(err):
		return ports.OutcomeUnavailable
	default:
		return ports.OutcomeInternal
	}
}
