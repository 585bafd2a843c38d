package dynamodb

import (
	"context"
	"errors"
	"testing"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"
	"mathops/pkg/common"
	appErrors "mathops/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const table = "operations"

var owner = valueobjects.MustIdentity("ada@example.com")

func recordAV(t *testing.T, ts int64, removed bool) map[string]types.AttributeValue {
	t.Helper()
	rec, err := entities.NewOperationRecord(owner, ts, operations.Addition,
		valueobjects.NumberResult(float64(ts%100)), valueobjects.NewCredits(7), "req")
	require.NoError(t, err)
	rec.Removed = removed
	av, err := marshalRecord(rec)
	require.NoError(t, err)
	return av
}

func TestItems_RecordRoundTrip(t *testing.T) {
	numeric, err := entities.NewOperationRecord(owner, 1000, operations.Division,
		valueobjects.NumberResult(2.5), valueobjects.NewCredits(9), "r1")
	require.NoError(t, err)
	av, err := marshalRecord(numeric)
	require.NoError(t, err)

	details := av[attrDetails].(*types.AttributeValueMemberM).Value
	assert.Equal(t, &types.AttributeValueMemberN{Value: "9"}, details["user_balance"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ada@example.com"}, av[attrPK])

	back, err := unmarshalRecord(av)
	require.NoError(t, err)
	assert.Equal(t, 2.5, back.Result.Number())
	assert.Equal(t, "r1", back.RequestID)

	strs, err := entities.NewOperationRecord(owner, 1001, operations.RandomString,
		valueobjects.StringsResult([]string{"abc", "xyz"}), valueobjects.NewCredits(1), "")
	require.NoError(t, err)
	av, err = marshalRecord(strs)
	require.NoError(t, err)
	back, err = unmarshalRecord(av)
	require.NoError(t, err)
	assert.True(t, back.Result.IsStrings())
	assert.Equal(t, []string{"abc", "xyz"}, back.Result.Strings())
}

func TestAccountRepository_GetBalance(t *testing.T) {
	api := &mockAPI{}
	repo := NewAccountRepository(api, table, zap.NewNop())

	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		pk := in.Key[attrPK].(*types.AttributeValueMemberS).Value
		return pk == "user#ada@example.com" && aws.ToBool(in.ConsistentRead)
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: "user#ada@example.com"},
		attrSK: &types.AttributeValueMemberN{Value: "2"},
		attrDetails: &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"status":       &types.AttributeValueMemberS{Value: "active"},
			"user_balance": &types.AttributeValueMemberN{Value: "10"},
		}},
	}}, nil).Once()

	acct, err := repo.GetBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, acct.IsActive())
	assert.True(t, acct.Balance().Equals(valueobjects.NewCredits(10)))

	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()
	_, err = repo.GetBalance(context.Background(), owner)
	assert.ErrorIs(t, err, ports.ErrAccountNotFound)
}

func TestAccountRepository_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		api := &mockAPI{}
		api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return in.ConditionExpression != nil && in.UpdateExpression != nil
		})).Return(&dynamodb.UpdateItemOutput{}, nil)

		balance, err := NewAccountRepository(api, table, zap.NewNop()).
			Debit(ctx, owner, valueobjects.NewCredits(10), valueobjects.NewCredits(3))
		require.NoError(t, err)
		assert.True(t, balance.Equals(valueobjects.NewCredits(7)))
	})

	t.Run("stale balance", func(t *testing.T) {
		api := &mockAPI{}
		api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{
			Item: map[string]types.AttributeValue{attrPK: &types.AttributeValueMemberS{Value: "user#ada@example.com"}},
		})

		_, err := NewAccountRepository(api, table, zap.NewNop()).
			Debit(ctx, owner, valueobjects.NewCredits(10), valueobjects.NewCredits(3))
		assert.ErrorIs(t, err, ports.ErrBalanceConflict)
	})

	t.Run("missing account", func(t *testing.T) {
		api := &mockAPI{}
		api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{})

		_, err := NewAccountRepository(api, table, zap.NewNop()).
			Debit(ctx, owner, valueobjects.NewCredits(10), valueobjects.NewCredits(3))
		assert.ErrorIs(t, err, ports.ErrAccountNotFound)
	})

	t.Run("overdraw never reaches the table", func(t *testing.T) {
		api := &mockAPI{}
		_, err := NewAccountRepository(api, table, zap.NewNop()).
			Debit(ctx, owner, valueobjects.NewCredits(1), valueobjects.NewCredits(3))
		assert.ErrorIs(t, err, ports.ErrBalanceConflict)
		api.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})
}

func TestUnitOfWork_CommitMapsCancellationReasons(t *testing.T) {
	rec, err := entities.NewOperationRecord(owner, 5000, operations.Addition,
		valueobjects.NumberResult(5), valueobjects.NewCredits(9), "")
	require.NoError(t, err)

	none := types.CancellationReason{Code: aws.String("None")}
	failed := types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
	failedWithItem := types.CancellationReason{
		Code: aws.String("ConditionalCheckFailed"),
		Item: map[string]types.AttributeValue{attrPK: &types.AttributeValueMemberS{Value: "user#ada@example.com"}},
	}

	tests := []struct {
		name    string
		reasons []types.CancellationReason
		want    error
	}{
		{"record exists", []types.CancellationReason{none, failed}, ports.ErrRecordExists},
		{"balance changed", []types.CancellationReason{failedWithItem, none}, ports.ErrBalanceConflict},
		{"account missing", []types.CancellationReason{failed, none}, ports.ErrAccountNotFound},
		{"concurrent transaction", []types.CancellationReason{{Code: aws.String("TransactionConflict")}, none}, ports.ErrBalanceConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
				return len(in.TransactItems) == 2 && in.TransactItems[0].Update != nil && in.TransactItems[1].Put != nil
			})).Return(nil, &types.TransactionCanceledException{CancellationReasons: tt.reasons})

			uow := NewUnitOfWork(api, table, zap.NewNop())
			tx, err := uow.Begin(context.Background())
			require.NoError(t, err)
			tx.Debit(owner, valueobjects.NewCredits(10), valueobjects.NewCredits(1))
			tx.Append(rec)

			assert.ErrorIs(t, tx.Commit(context.Background()), tt.want)
			api.AssertExpectations(t)
		})
	}

	t.Run("commit once", func(t *testing.T) {
		api := &mockAPI{}
		api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

		tx, err := NewUnitOfWork(api, table, zap.NewNop()).Begin(context.Background())
		require.NoError(t, err)
		tx.Debit(owner, valueobjects.NewCredits(10), valueobjects.NewCredits(1))
		tx.Append(rec)
		require.NoError(t, tx.Commit(context.Background()))
		assert.Error(t, tx.Commit(context.Background()))
	})
}

func TestRecordRepository_QueryPages(t *testing.T) {
	api := &mockAPI{}
	repo := NewRecordRepository(api, table, HistoryQueryStrategy, 0, zap.NewNop())

	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return in.ExclusiveStartKey == nil && !aws.ToBool(in.ScanIndexForward) && aws.ToInt32(in.Limit) == 3
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		recordAV(t, 1005, false), recordAV(t, 1004, false), recordAV(t, 1003, false),
	}, LastEvaluatedKey: recordKey(owner.String(), 1003)}, nil).Once()

	page, err := repo.Query(context.Background(), owner, ports.HistoryQuery{Limit: 2, Order: ports.SortDescending})
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, int64(1004), page.Records[1].Timestamp)

	cursor, err := common.DecodeCursor(page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(1004), cursor.SK)

	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		sk, ok := in.ExclusiveStartKey[attrSK].(*types.AttributeValueMemberN)
		return ok && sk.Value == "1004" && in.FilterExpression != nil
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{
		recordAV(t, 1003, false),
	}}, nil).Once()

	next, err := repo.Query(context.Background(), owner, ports.HistoryQuery{
		Limit: 2, Order: ports.SortDescending, Cursor: page.NextCursor, ExcludeRemoved: true,
	})
	require.NoError(t, err)
	require.Len(t, next.Records, 1)
	assert.Empty(t, next.NextCursor)
	api.AssertExpectations(t)
}

func TestRecordRepository_QueryRejectsForeignCursor(t *testing.T) {
	repo := NewRecordRepository(&mockAPI{}, table, HistoryQueryStrategy, 0, zap.NewNop())
	cursor := common.EncodeCursor(common.PageCursor{PK: "eve@example.com", SK: 1000})

	_, err := repo.Query(context.Background(), owner, ports.HistoryQuery{Limit: 2, Cursor: cursor})
	assert.ErrorIs(t, err, ports.ErrInvalidCursor)
}

func TestRecordRepository_ScanStrategy(t *testing.T) {
	api := &mockAPI{}
	repo := NewRecordRepository(api, table, HistoryScanStrategy, 2, zap.NewNop())

	segment := func(n int32) interface{} {
		return mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
			return aws.ToInt32(in.Segment) == n && aws.ToInt32(in.TotalSegments) == 2
		})
	}
	api.On("Scan", mock.Anything, segment(0)).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{
		recordAV(t, 3001, false), recordAV(t, 3004, true),
	}}, nil)
	api.On("Scan", mock.Anything, segment(1)).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{
		recordAV(t, 3003, false),
	}}, nil)

	page, err := repo.Query(context.Background(), owner, ports.HistoryQuery{Limit: 10, Order: ports.SortAscending})
	require.NoError(t, err)
	got := []int64{}
	for _, r := range page.Records {
		got = append(got, r.Timestamp)
	}
	assert.Equal(t, []int64{3001, 3003, 3004}, got)

	visible, err := repo.Query(context.Background(), owner, ports.HistoryQuery{Limit: 10, ExcludeRemoved: true})
	require.NoError(t, err)
	assert.Len(t, visible.Records, 2)
}

func TestRecordRepository_AppendAndSoftRemove(t *testing.T) {
	api := &mockAPI{}
	repo := NewRecordRepository(api, table, HistoryQueryStrategy, 0, zap.NewNop())
	rec, err := entities.NewOperationRecord(owner, 4000, operations.Addition,
		valueobjects.NumberResult(1), valueobjects.NewCredits(1), "")
	require.NoError(t, err)

	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return in.ConditionExpression != nil
	})).Return(nil, &types.ConditionalCheckFailedException{}).Once()
	assert.ErrorIs(t, repo.Append(context.Background(), rec), ports.ErrRecordExists)

	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{}).Once()
	assert.ErrorIs(t, repo.SoftRemove(context.Background(), owner, 4000), ports.ErrRecordNotFound)

	api.On("UpdateItem", mock.Anything, mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil).Once()
	assert.NoError(t, repo.SoftRemove(context.Background(), owner, 4000))
}

func TestCostRepository(t *testing.T) {
	api := &mockAPI{}
	repo := NewCostRepository(api, table, zap.NewNop())

	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return in.Key[attrPK].(*types.AttributeValueMemberS).Value == operations.Addition
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: operations.Addition},
		attrSK: &types.AttributeValueMemberN{Value: "1"},
		attrDetails: &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"cost": &types.AttributeValueMemberN{Value: "1.5"},
		}},
	}}, nil)
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	cost, err := repo.Cost(context.Background(), operations.Addition)
	require.NoError(t, err)
	assert.Equal(t, "1.5", cost.String())

	_, err = repo.Cost(context.Background(), "modulo")
	assert.ErrorIs(t, err, operations.ErrUnknownOperation)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil, "x"))
	assert.True(t, appErrors.IsUnavailable(classify(&types.ProvisionedThroughputExceededException{}, "x")))
	assert.True(t, appErrors.IsUnavailable(classify(&types.RequestLimitExceeded{}, "x")))

	plain := errors.New("boom")
	assert.ErrorIs(t, classify(plain, "x"), plain)
	assert.False(t, appErrors.IsAppError(classify(plain, "x")))

	assert.ErrorIs(t, classify(context.DeadlineExceeded, "x"), context.DeadlineExceeded)
}
