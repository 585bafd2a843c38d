// Package mocks holds testify mocks of the application ports.
package mocks

import (
	"context"
	"time"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockCreditLedger is a mock implementation of ports.CreditLedger
type MockCreditLedger struct {
	mock.Mock
}

func (m *MockCreditLedger) GetBalance(ctx context.Context, identity valueobjects.Identity) (*entities.Account, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockCreditLedger) Debit(ctx context.Context, identity valueobjects.Identity, expected, amount valueobjects.Credits) (valueobjects.Credits, error) {
	args := m.Called(ctx, identity, expected, amount)
	return args.Get(0).(valueobjects.Credits), args.Error(1)
}

// MockAuditLog is a mock implementation of ports.AuditLog
type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Append(ctx context.Context, record *entities.OperationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAuditLog) Query(ctx context.Context, owner valueobjects.Identity, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	args := m.Called(ctx, owner, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.HistoryPage), args.Error(1)
}

func (m *MockAuditLog) SoftRemove(ctx context.Context, owner valueobjects.Identity, timestamp int64) error {
	args := m.Called(ctx, owner, timestamp)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// MockMetrics is a mock implementation of ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordOperation(ctx context.Context, operation, outcome string, cost valueobjects.Credits, duration time.Duration) {
	m.Called(ctx, operation, outcome, cost, duration)
}

// FixedClock always returns the same instant.
type FixedClock struct {
	Millis int64
}

func (c FixedClock) NowMillis() int64 { return c.Millis }
