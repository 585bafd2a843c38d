package sqlite

import (
	"context"
	"testing"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = valueobjects.MustIdentity("ada@example.com")

func newTestStore(t *testing.T, balance int64) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	acct, err := entities.NewAccount(owner, entities.AccountActive, valueobjects.NewCredits(balance))
	require.NoError(t, err)
	require.NoError(t, s.PutAccount(context.Background(), acct))
	return s
}

func record(t *testing.T, ts int64, result valueobjects.Result) *entities.OperationRecord {
	t.Helper()
	rec, err := entities.NewOperationRecord(owner, ts, operations.Addition, result, valueobjects.NewCredits(4), "req")
	require.NoError(t, err)
	return rec
}

func TestStore_AccountsAndCosts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	require.NoError(t, s.PutCost(ctx, operations.Addition, valueobjects.NewCredits(2)))
	cost, err := s.Cost(ctx, operations.Addition)
	require.NoError(t, err)
	assert.True(t, cost.Equals(valueobjects.NewCredits(2)))

	_, err = s.Cost(ctx, "modulo")
	assert.ErrorIs(t, err, operations.ErrUnknownOperation)

	balance, err := s.Debit(ctx, owner, valueobjects.NewCredits(10), valueobjects.NewCredits(4))
	require.NoError(t, err)
	assert.True(t, balance.Equals(valueobjects.NewCredits(6)))

	_, err = s.Debit(ctx, owner, valueobjects.NewCredits(10), valueobjects.NewCredits(1))
	assert.ErrorIs(t, err, ports.ErrBalanceConflict)

	_, err = s.Debit(ctx, valueobjects.MustIdentity("nobody@example.com"), valueobjects.NewCredits(1), valueobjects.NewCredits(1))
	assert.ErrorIs(t, err, ports.ErrAccountNotFound)

	acct, err := s.GetBalance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, acct.Balance().Equals(valueobjects.NewCredits(6)))
}

func TestStore_RecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)

	require.NoError(t, s.Append(ctx, record(t, 1001, valueobjects.NumberResult(3.5))))
	require.NoError(t, s.Append(ctx, record(t, 1002, valueobjects.StringsResult([]string{"ab", "cd"}))))
	assert.ErrorIs(t, s.Append(ctx, record(t, 1001, valueobjects.NumberResult(0))), ports.ErrRecordExists)

	page, err := s.Query(ctx, owner, ports.HistoryQuery{Limit: 10, Order: ports.SortAscending})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, 3.5, page.Records[0].Result.Number())
	assert.Equal(t, []string{"ab", "cd"}, page.Records[1].Result.Strings())
	assert.Equal(t, "req", page.Records[0].RequestID)
}

func TestStore_QueryPagesAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10)
	for _, ts := range []int64{2001, 2002, 2003, 2004} {
		require.NoError(t, s.Append(ctx, record(t, ts, valueobjects.NumberResult(1))))
	}
	require.NoError(t, s.SoftRemove(ctx, owner, 2003))
	assert.ErrorIs(t, s.SoftRemove(ctx, owner, 9999), ports.ErrRecordNotFound)

	page, err := s.Query(ctx, owner, ports.HistoryQuery{Limit: 2, Order: ports.SortDescending})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, int64(2004), page.Records[0].Timestamp)
	assert.True(t, page.Records[1].Removed)
	require.NotEmpty(t, page.NextCursor)

	next, err := s.Query(ctx, owner, ports.HistoryQuery{Limit: 2, Order: ports.SortDescending, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Records, 2)
	assert.Equal(t, int64(2001), next.Records[1].Timestamp)
	assert.Empty(t, next.NextCursor)

	visible, err := s.Query(ctx, owner, ports.HistoryQuery{Limit: 10, ExcludeRemoved: true})
	require.NoError(t, err)
	assert.Len(t, visible.Records, 3)
}

func TestStore_TransactionIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 5)
	require.NoError(t, s.Append(ctx, record(t, 3000, valueobjects.NumberResult(1))))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	tx.Debit(owner, valueobjects.NewCredits(5), valueobjects.NewCredits(1))
	tx.Append(record(t, 3000, valueobjects.NumberResult(2)))
	assert.ErrorIs(t, tx.Commit(ctx), ports.ErrRecordExists)

	acct, err := s.GetBalance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, acct.Balance().Equals(valueobjects.NewCredits(5)))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	tx.Debit(owner, valueobjects.NewCredits(5), valueobjects.NewCredits(1))
	tx.Append(record(t, 3001, valueobjects.NumberResult(2)))
	require.NoError(t, tx.Commit(ctx))

	acct, err = s.GetBalance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, acct.Balance().Equals(valueobjects.NewCredits(4)))
}
