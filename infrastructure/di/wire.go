//go:build wireinject
// +build wireinject

package di

import (
	"context"

	commandhandlers "mathops/application/commands/handlers"
	queryhandlers "mathops/application/queries/handlers"
	"mathops/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideStorage,
	ProvideCreditLedger,
	ProvideAuditLog,
	ProvideUnitOfWork,
	ProvideHealthChecker,
	ProvideCache,
	ProvideCostSource,
	ProvideStringGenerator,
	ProvideCatalog,
	ProvideEventPublisher,
	ProvideCollector,
	ProvideMetrics,
	ProvideTracer,
	ProvideClock,
	commandhandlers.NewTimestampSequencer,
	commandhandlers.NewOperationExecutor,
	queryhandlers.NewGetHistoryHandler,
	ProvideSoftRemoveHandler,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
