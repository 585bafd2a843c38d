package handlers

import (
	"context"
	"testing"
	"time"

	"mathops/application/ports"
	"mathops/application/ports/mocks"
	"mathops/application/queries"
	domainconfig "mathops/domain/config"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"
	"mathops/infrastructure/persistence/memory"
	appErrors "mathops/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var owner = valueobjects.MustIdentity("ada@example.com")

func seedRecords(t *testing.T, store *memory.Store, stamps ...int64) {
	t.Helper()
	for i, ts := range stamps {
		rec, err := entities.NewOperationRecord(owner, ts, operations.Addition,
			valueobjects.NumberResult(float64(i)), valueobjects.NewCredits(int64(100-i)), "")
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), rec))
	}
}

func TestGetHistoryHandler_PagesNewestFirst(t *testing.T) {
	store := memory.NewStore()
	base := time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC).UnixMilli()
	seedRecords(t, store, base, base+1, base+2)

	h := NewGetHistoryHandler(store, domainconfig.DefaultDomainConfig(), zap.NewNop())

	first, err := h.Handle(context.Background(), queries.GetHistoryQuery{Email: owner.String(), Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	assert.Equal(t, base+2, first.Records[0].Timestamp)
	assert.Equal(t, "March 5, 2024", first.Records[0].Date)
	assert.Equal(t, operations.Addition, first.Records[0].Type)
	assert.Equal(t, 2.0, first.Records[0].Result)
	assert.NotEmpty(t, first.NextPage)

	rest, err := h.Handle(context.Background(), queries.GetHistoryQuery{
		Email: owner.String(), Limit: 2, Cursor: first.NextPage,
	})
	require.NoError(t, err)
	require.Len(t, rest.Records, 1)
	assert.Equal(t, base, rest.Records[0].Timestamp)
	assert.Empty(t, rest.NextPage)
}

func TestGetHistoryHandler_Ascending(t *testing.T) {
	store := memory.NewStore()
	seedRecords(t, store, 5000, 6000)
	h := NewGetHistoryHandler(store, domainconfig.DefaultDomainConfig(), zap.NewNop())

	res, err := h.Handle(context.Background(), queries.GetHistoryQuery{Email: owner.String(), Order: "asc"})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, int64(5000), res.Records[0].Timestamp)
}

func TestGetHistoryHandler_LimitDefaults(t *testing.T) {
	cfg := domainconfig.DefaultDomainConfig()
	audit := &mocks.MockAuditLog{}
	audit.On("Query", mock.Anything, owner, mock.MatchedBy(func(q ports.HistoryQuery) bool {
		return q.Limit == cfg.DefaultHistoryLimit && q.Order == ports.SortDescending
	})).Return(&ports.HistoryPage{}, nil).Once()
	audit.On("Query", mock.Anything, owner, mock.MatchedBy(func(q ports.HistoryQuery) bool {
		return q.Limit == cfg.MaxHistoryLimit
	})).Return(&ports.HistoryPage{}, nil).Once()

	h := NewGetHistoryHandler(audit, cfg, zap.NewNop())

	res, err := h.Handle(context.Background(), queries.GetHistoryQuery{Email: owner.String()})
	require.NoError(t, err)
	assert.NotNil(t, res.Records)

	_, err = h.Handle(context.Background(), queries.GetHistoryQuery{Email: owner.String(), Limit: 5000})
	require.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestGetHistoryHandler_Errors(t *testing.T) {
	store := memory.NewStore()
	h := NewGetHistoryHandler(store, domainconfig.DefaultDomainConfig(), zap.NewNop())

	_, err := h.Handle(context.Background(), queries.GetHistoryQuery{})
	assert.True(t, appErrors.IsPreconditionFailed(err))

	_, err = h.Handle(context.Background(), queries.GetHistoryQuery{Email: owner.String(), Order: "sideways"})
	assert.True(t, appErrors.IsPreconditionFailed(err))

	_, err = h.Handle(context.Background(), queries.GetHistoryQuery{Email: owner.String(), Cursor: "not-a-cursor"})
	assert.True(t, appErrors.IsPreconditionFailed(err))
}

func TestFormatRecord_RandomStrings(t *testing.T) {
	rec, err := entities.NewOperationRecord(owner, 86_400_000, operations.RandomString,
		valueobjects.StringsResult([]string{"ab", "cd"}), valueobjects.NewCredits(3), "")
	require.NoError(t, err)
	rec.Removed = true

	out := FormatRecord(rec)
	assert.Equal(t, []string{"ab", "cd"}, out.Result)
	assert.Equal(t, "January 2, 1970", out.Date)
	assert.True(t, out.Removed)
}
