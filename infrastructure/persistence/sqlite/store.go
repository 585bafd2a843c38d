// Package sqlite keeps accounts, prices and records in a SQLite file for
// local runs. It implements the same ports as the DynamoDB adapter.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"
	"mathops/infrastructure/persistence/abstractions"
	"mathops/infrastructure/persistence/schema"
	"mathops/pkg/common"

	"github.com/mattn/go-sqlite3"
)

// Store implements CreditLedger, AuditLog, UnitOfWork and CostSource.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at path. Use ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers and keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var migrations = []schema.Migration{
	{
		Version:     1,
		Description: "accounts, costs and records",
		Up: schema.Exec(
			`CREATE TABLE IF NOT EXISTS accounts (
				identity TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				balance TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS operation_costs (
				name TEXT PRIMARY KEY,
				cost TEXT NOT NULL
			)`,
			// One row per completed operation; only removed ever changes.
			`CREATE TABLE IF NOT EXISTS records (
				owner TEXT NOT NULL,
				ts INTEGER NOT NULL,
				operation TEXT NOT NULL,
				amount REAL,
				strings_json TEXT,
				balance_after TEXT NOT NULL,
				removed INTEGER NOT NULL DEFAULT 0,
				request_id TEXT,
				PRIMARY KEY (owner, ts)
			)`,
		),
	},
	{
		Version:     2,
		Description: "index visible records",
		Up:          schema.Exec(`CREATE INDEX IF NOT EXISTS records_visible ON records (owner, removed, ts)`),
	},
}

func (s *Store) migrate() error {
	evo, err := schema.NewSchemaEvolution(migrations...)
	if err != nil {
		return err
	}
	_, err = evo.Migrate(context.Background(), s.db)
	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// PutAccount creates or replaces an account.
func (s *Store) PutAccount(ctx context.Context, account *entities.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (identity, status, balance) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET status = excluded.status, balance = excluded.balance`,
		account.Identity().String(), string(account.Status()), account.Balance().String())
	return err
}

// PutCost sets the price of an operation.
func (s *Store) PutCost(ctx context.Context, name string, cost valueobjects.Credits) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operation_costs (name, cost) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET cost = excluded.cost`,
		name, cost.String())
	return err
}

func (s *Store) Cost(ctx context.Context, name string) (valueobjects.Credits, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT cost FROM operation_costs WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return valueobjects.Credits{}, fmt.Errorf("%w: no cost configured for %s", operations.ErrUnknownOperation, name)
	}
	if err != nil {
		return valueobjects.Credits{}, err
	}
	return valueobjects.ParseCredits(raw)
}

func (s *Store) GetBalance(ctx context.Context, identity valueobjects.Identity) (*entities.Account, error) {
	var status, balance string
	err := s.db.QueryRowContext(ctx,
		`SELECT status, balance FROM accounts WHERE identity = ?`, identity.String()).Scan(&status, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	credits, err := valueobjects.ParseCredits(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt balance for %s: %w", identity, err)
	}
	return entities.NewAccount(identity, entities.AccountStatus(status), credits)
}

func (s *Store) Debit(ctx context.Context, identity valueobjects.Identity, expected, amount valueobjects.Credits) (valueobjects.Credits, error) {
	if err := debit(ctx, s.db, identity, expected, amount); err != nil {
		return valueobjects.Credits{}, err
	}
	return expected.Sub(amount), nil
}

// debit is a compare-and-set on the stored balance text. Balances are
// always written in canonical decimal form, so text equality is numeric
// equality.
func debit(ctx context.Context, db execer, identity valueobjects.Identity, expected, amount valueobjects.Credits) error {
	if expected.LessThan(amount) {
		return ports.ErrBalanceConflict
	}
	res, err := db.ExecContext(ctx,
		`UPDATE accounts SET balance = ? WHERE identity = ? AND balance = ?`,
		expected.Sub(amount).String(), identity.String(), expected.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE identity = ?`, identity.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	return ports.ErrBalanceConflict
}

func (s *Store) Append(ctx context.Context, record *entities.OperationRecord) error {
	return insertRecord(ctx, s.db, record)
}

func insertRecord(ctx context.Context, db execer, record *entities.OperationRecord) error {
	var amount sql.NullFloat64
	var stringsJSON sql.NullString
	if record.Result.IsStrings() {
		data, err := json.Marshal(record.Result.Strings())
		if err != nil {
			return err
		}
		stringsJSON = sql.NullString{String: string(data), Valid: true}
	} else {
		amount = sql.NullFloat64{Float64: record.Result.Number(), Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO records (owner, ts, operation, amount, strings_json, balance_after, removed, request_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Owner.String(), record.Timestamp, record.Operation, amount, stringsJSON,
		record.BalanceAfter.String(), record.Removed, record.RequestID)
	if isConstraintViolation(err) {
		return ports.ErrRecordExists
	}
	return err
}

func isConstraintViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func (s *Store) Query(ctx context.Context, owner valueobjects.Identity, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	after, hasCursor, err := abstractions.CursorAfter(owner, q.Cursor)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	args := []interface{}{owner.String(), entities.MinRecordTimestamp}
	sb.WriteString(`SELECT ts, operation, amount, strings_json, balance_after, removed, request_id
		FROM records WHERE owner = ? AND ts > ?`)
	if q.ExcludeRemoved {
		sb.WriteString(` AND removed = 0`)
	}
	dir := "DESC"
	if q.Order == ports.SortAscending {
		dir = "ASC"
		if hasCursor {
			sb.WriteString(` AND ts > ?`)
			args = append(args, after)
		}
	} else if hasCursor {
		sb.WriteString(` AND ts < ?`)
		args = append(args, after)
	}
	sb.WriteString(` ORDER BY ts ` + dir)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit+1)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entities.OperationRecord
	for rows.Next() {
		rec, err := scanRecord(owner, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &ports.HistoryPage{Records: records}
	if q.Limit > 0 && len(records) > q.Limit {
		page.Records = records[:q.Limit]
		last := page.Records[len(page.Records)-1]
		page.NextCursor = common.EncodeCursor(common.PageCursor{PK: owner.String(), SK: last.Timestamp})
	}
	return page, nil
}

func scanRecord(owner valueobjects.Identity, rows *sql.Rows) (*entities.OperationRecord, error) {
	var (
		ts          int64
		operation   string
		amount      sql.NullFloat64
		stringsJSON sql.NullString
		balance     string
		removed     bool
		requestID   sql.NullString
	)
	if err := rows.Scan(&ts, &operation, &amount, &stringsJSON, &balance, &removed, &requestID); err != nil {
		return nil, err
	}

	result := valueobjects.NumberResult(amount.Float64)
	if stringsJSON.Valid {
		var list []string
		if err := json.Unmarshal([]byte(stringsJSON.String), &list); err != nil {
			return nil, fmt.Errorf("corrupt record %s/%d: %w", owner, ts, err)
		}
		result = valueobjects.StringsResult(list)
	}
	credits, err := valueobjects.ParseCredits(balance)
	if err != nil {
		return nil, fmt.Errorf("corrupt record %s/%d: %w", owner, ts, err)
	}

	rec, err := entities.NewOperationRecord(owner, ts, operation, result, credits, requestID.String)
	if err != nil {
		return nil, err
	}
	rec.Removed = removed
	return rec, nil
}

func (s *Store) SoftRemove(ctx context.Context, owner valueobjects.Identity, timestamp int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET removed = 1 WHERE owner = ? AND ts = ?`, owner.String(), timestamp)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ports.ErrRecordNotFound
	}
	return nil
}

// Begin starts a buffered transaction; statements run inside one SQL
// transaction at Commit.
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

func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already finished")
	}
	t.done = true

	sqlTx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer sqlTx.Rollback()

	for _, d := range t.debits {
		if err := debit(ctx, sqlTx, d.identity, d.expected, d.amount); err != nil {
			return err
		}
	}
	for _, r := range t.records {
		if err := insertRecord(ctx, sqlTx, r); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func (t *transaction) Rollback() error {
	t.done = true
	t.debits = nil
	t.records = nil
	return nil
}
