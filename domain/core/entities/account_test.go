package entities

import (
	"testing"

	"mathops/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_BalanceAfter(t *testing.T) {
	id := valueobjects.MustIdentity("user@example.com")

	tests := []struct {
		name    string
		status  AccountStatus
		balance int64
		cost    int64
		want    int64
		wantErr error
	}{
		{"debits cost", AccountActive, 10, 1, 9, nil},
		{"exact balance", AccountActive, 3, 3, 0, nil},
		{"free operation on empty balance", AccountActive, 0, 0, 0, nil},
		{"insufficient", AccountActive, 0, 1, 0, ErrInsufficientCredits},
		{"inactive", AccountInactive, 10, 1, 0, ErrAccountInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, err := NewAccount(id, tt.status, valueobjects.NewCredits(tt.balance))
			require.NoError(t, err)

			got, err := acct.BalanceAfter(valueobjects.NewCredits(tt.cost))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equals(valueobjects.NewCredits(tt.want)), "got %s", got)
		})
	}
}

func TestNewAccount_Rejects(t *testing.T) {
	id := valueobjects.MustIdentity("user@example.com")

	_, err := NewAccount(id, AccountActive, valueobjects.NewCredits(-1))
	assert.Error(t, err)

	_, err = NewAccount(id, "suspended", valueobjects.NewCredits(1))
	assert.Error(t, err)

	_, err = NewAccount(valueobjects.Identity{}, AccountActive, valueobjects.NewCredits(1))
	assert.ErrorIs(t, err, valueobjects.ErrEmptyIdentity)
}

func TestNewOperationRecord(t *testing.T) {
	id := valueobjects.MustIdentity("user@example.com")

	rec, err := NewOperationRecord(id, 1700000000000, "addition",
		valueobjects.NumberResult(5), valueobjects.NewCredits(9), "req-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), rec.Time().UnixMilli())
	assert.False(t, rec.Removed)

	_, err = NewOperationRecord(id, MinRecordTimestamp, "addition",
		valueobjects.NumberResult(5), valueobjects.NewCredits(9), "")
	assert.Error(t, err)
}
