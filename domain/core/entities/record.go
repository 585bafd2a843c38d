package entities

import (
	"errors"
	"time"

	"mathops/domain/core/valueobjects"
)

// MinRecordTimestamp is the sort-key floor for audit records. Account and
// configuration items share the table with keys at or below it.
const MinRecordTimestamp int64 = 2

// OperationRecord is one completed operation and its effect on the balance.
// Only the removed flag ever changes after creation.
type OperationRecord struct {
	Owner        valueobjects.Identity
	Timestamp    int64 // milliseconds since the epoch, unique per owner
	Operation    string
	Result       valueobjects.Result
	BalanceAfter valueobjects.Credits
	Removed      bool
	RequestID    string
}

func NewOperationRecord(owner valueobjects.Identity, timestamp int64, operation string,
	result valueobjects.Result, balanceAfter valueobjects.Credits, requestID string) (*OperationRecord, error) {
	if owner.IsZero() {
		return nil, valueobjects.ErrEmptyIdentity
	}
	if timestamp <= MinRecordTimestamp {
		return nil, errors.New("record timestamp must be after the record floor")
	}
	if operation == "" {
		return nil, errors.New("operation name is required")
	}
	return &OperationRecord{
		Owner:        owner,
		Timestamp:    timestamp,
		Operation:    operation,
		Result:       result,
		BalanceAfter: balanceAfter,
		RequestID:    requestID,
	}, nil
}

// Time converts the record key to wall-clock time.
func (r *OperationRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp).UTC()
}
