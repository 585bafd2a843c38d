package events

import (
	"time"

	"github.com/google/uuid"
)

// SourceBackend is the EventBridge source for everything this service emits.
const SourceBackend = "mathops.backend"

const (
	TypeOperationCompleted = "operation.completed"
	TypeRecordRemoved      = "record.removed"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func newBase(aggregateID, eventType string, at time.Time) BaseEvent {
	return BaseEvent{
		EventID:     uuid.New().String(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   at,
		Version:     1,
	}
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

// OperationCompleted is raised after a debit and its record were committed.
type OperationCompleted struct {
	BaseEvent
	Identity        string `json:"identity"`
	Operation       string `json:"operation"`
	RecordTimestamp int64  `json:"record_timestamp"`
	Cost            string `json:"cost"`
	BalanceAfter    string `json:"balance_after"`
	RequestID       string `json:"request_id,omitempty"`
}

func NewOperationCompleted(identity, operation string, recordTimestamp int64, cost, balanceAfter, requestID string, at time.Time) OperationCompleted {
	return OperationCompleted{
		BaseEvent:       newBase(identity, TypeOperationCompleted, at),
		Identity:        identity,
		Operation:       operation,
		RecordTimestamp: recordTimestamp,
		Cost:            cost,
		BalanceAfter:    balanceAfter,
		RequestID:       requestID,
	}
}

// RecordRemoved is raised when a record is soft-removed.
type RecordRemoved struct {
	BaseEvent
	Identity        string `json:"identity"`
	RecordTimestamp int64  `json:"record_timestamp"`
}

func NewRecordRemoved(identity string, recordTimestamp int64, at time.Time) RecordRemoved {
	return RecordRemoved{
		BaseEvent:       newBase(identity, TypeRecordRemoved, at),
		Identity:        identity,
		RecordTimestamp: recordTimestamp,
	}
}
