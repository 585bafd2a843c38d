package di

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/infrastructure/config"
	"mathops/infrastructure/persistence/dynamodb"
	"mathops/infrastructure/persistence/memory"
	"mathops/infrastructure/persistence/sqlite"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// HealthChecker reports whether the backing store can serve requests.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Seeder provisions accounts and prices. Used by cmd/seed and local runs.
type Seeder interface {
	PutAccount(ctx context.Context, account *entities.Account) error
	PutCosts(ctx context.Context, costs map[string]valueobjects.Credits) error
}

// Storage groups the adapters of one backend.
type Storage struct {
	Backend string
	Ledger  ports.CreditLedger
	Audit   ports.AuditLog
	UoW     ports.UnitOfWork
	// Costs is the backend's own price table.
	Costs  ports.CostSource
	Seeder Seeder
	Health HealthChecker
}

// ProvideStorage builds the adapters selected by STORAGE_BACKEND. The
// cleanup closes file handles for the sqlite backend.
func ProvideStorage(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (*Storage, func(), error) {
	noop := func() {}

	switch cfg.StorageBackend {
	case config.StorageMemory:
		store := memory.NewStore()
		return &Storage{
			Backend: cfg.StorageBackend,
			Ledger:  store,
			Audit:   store,
			UoW:     store,
			Costs:   store,
			Seeder:  keyedSeeder{accounts: store, costs: store},
			Health:  pingFunc(func(context.Context) error { return nil }),
		}, noop, nil

	case config.StorageSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, noop, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		store, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}
		return &Storage{
			Backend: cfg.StorageBackend,
			Ledger:  store,
			Audit:   store,
			UoW:     store,
			Costs:   store,
			Seeder:  keyedSeeder{accounts: store, costs: store},
			Health:  store,
		}, cleanup, nil

	default:
		accounts := dynamodb.NewAccountRepository(client, cfg.OperationsTable, logger)
		costs := dynamodb.NewCostRepository(client, cfg.OperationsTable, logger)
		records := dynamodb.NewRecordRepository(
			client,
			cfg.OperationsTable,
			dynamodb.HistoryStrategy(cfg.HistoryStrategy),
			cfg.HistoryScanSegments,
			logger,
		)
		return &Storage{
			Backend: cfg.StorageBackend,
			Ledger:  accounts,
			Audit:   records,
			UoW:     dynamodb.NewUnitOfWork(client, cfg.OperationsTable, logger),
			Costs:   costs,
			Seeder:  dynamoSeeder{accounts: accounts, costs: costs},
			Health:  dynamodb.NewTableChecker(client, cfg.OperationsTable),
		}, noop, nil
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type accountWriter interface {
	PutAccount(ctx context.Context, account *entities.Account) error
}

type costWriter interface {
	PutCost(ctx context.Context, name string, cost valueobjects.Credits) error
}

// keyedSeeder writes prices one at a time.
type keyedSeeder struct {
	accounts accountWriter
	costs    costWriter
}

func (s keyedSeeder) PutAccount(ctx context.Context, account *entities.Account) error {
	return s.accounts.PutAccount(ctx, account)
}

func (s keyedSeeder) PutCosts(ctx context.Context, costs map[string]valueobjects.Credits) error {
	for name, cost := range costs {
		if err := s.costs.PutCost(ctx, name, cost); err != nil {
			return fmt.Errorf("failed to put cost %s: %w", name, err)
		}
	}
	return nil
}

type dynamoSeeder struct {
	accounts *dynamodb.AccountRepository
	costs    *dynamodb.CostRepository
}

func (s dynamoSeeder) PutAccount(ctx context.Context, account *entities.Account) error {
	return s.accounts.PutAccount(ctx, account)
}

func (s dynamoSeeder) PutCosts(ctx context.Context, costs map[string]valueobjects.Credits) error {
	return s.costs.PutCosts(ctx, costs)
}
