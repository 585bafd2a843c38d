package di

import (
	"mathops/application/commands/bus"
	querybus "mathops/application/queries/bus"
	domainconfig "mathops/domain/config"
	"mathops/infrastructure/config"
	"mathops/pkg/observability"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// Container holds all application dependencies. It is built once per
// process; in Lambda that is the cold start.
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	DynamoDB     *awsdynamodb.Client
	Storage      *Storage
	Health       HealthChecker
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Collector    *observability.Collector
	Tracer       *observability.Tracer
}
