package di

import (
	"context"
	"fmt"
	"net/http"

	"mathops/application/commands"
	"mathops/application/commands/bus"
	commandhandlers "mathops/application/commands/handlers"
	"mathops/application/ports"
	"mathops/application/queries"
	querybus "mathops/application/queries/bus"
	queryhandlers "mathops/application/queries/handlers"
	domainconfig "mathops/domain/config"
	"mathops/domain/operations"
	"mathops/infrastructure/config"
	"mathops/infrastructure/messaging/eventbridge"
	"mathops/infrastructure/randomorg"
	"mathops/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"github.com/aws/aws-xray-sdk-go/xray"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "mathops"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// ProvideDomainConfig picks the environment's business rules and applies
// the environment overrides.
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.StoreTimeout > 0 {
		dc.StoreTimeout = cfg.StoreTimeout
	}
	if cfg.MaxSettleAttempts > 0 {
		dc.MaxSettleAttempts = cfg.MaxSettleAttempts
	}
	if cfg.RandomStringTimeout > 0 {
		dc.RandomStringTimeout = cfg.RandomStringTimeout
	}
	if err := dc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid domain config: %w", err)
	}
	return dc, nil
}

// ProvideAWSConfig creates AWS configuration. With tracing on, every SDK
// call becomes an X-Ray subsegment.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates the process-wide DynamoDB client.
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideCache creates the process cache.
func ProvideCache() (ports.Cache, func()) {
	cache := NewInMemoryCache()
	return cache, cache.Close
}

// ProvideCostSource prices operations from the costs file or the store,
// cached for COST_CACHE_TTL.
func ProvideCostSource(cfg *config.Config, storage *Storage, cache ports.Cache) (ports.CostSource, error) {
	if cfg.CostSource == config.CostSourceFile {
		costs, err := cfg.ResolveCosts()
		if err != nil {
			return nil, err
		}
		return costs, nil
	}
	if cfg.CostCacheTTL <= 0 {
		return storage.Costs, nil
	}
	return NewCachedCostSource(storage.Costs, cache, cfg.CostCacheTTL), nil
}

// ProvideStringGenerator uses random.org when an API key is configured and
// a local crypto/rand generator otherwise.
func ProvideStringGenerator(cfg *config.Config, logger *zap.Logger) operations.StringGenerator {
	if cfg.RandomStringAPIKey == "" {
		logger.Warn("RANDOM_STRING_API_KEY not set, generating random strings locally")
		return randomorg.LocalGenerator{}
	}

	httpClient := &http.Client{}
	if cfg.EnableTracing {
		httpClient = xray.Client(httpClient)
	}
	return randomorg.NewClient(randomorg.Config{
		APIKey:   cfg.RandomStringAPIKey,
		Endpoint: cfg.RandomStringAPIEndpoint,
	}, httpClient, logger)
}

// ProvideCatalog registers the built-in operations.
func ProvideCatalog(costs ports.CostSource, gen operations.StringGenerator) *operations.Catalog {
	return operations.NewCatalog(costs, gen)
}

// ProvideEventPublisher returns nil when no event bus is configured.
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideCollector creates the Prometheus collector for the local server.
func ProvideCollector(cfg *config.Config) *observability.Collector {
	if cfg.IsLambda {
		return nil
	}
	return observability.NewCollector(serviceName)
}

// ProvideMetrics reports to CloudWatch in Lambda when ENABLE_METRICS is on,
// and to Prometheus on the local server.
func ProvideMetrics(
	cfg *config.Config,
	client *awscloudwatch.Client,
	collector *observability.Collector,
	logger *zap.Logger,
) ports.Metrics {
	switch {
	case cfg.IsLambda && cfg.EnableMetrics:
		return observability.NewMetrics(fmt.Sprintf("%s/%s", cfg.MetricsNamespace, cfg.Environment), client, logger)
	case collector != nil:
		return collector
	default:
		return nil
	}
}

// ProvideTracer creates the X-Ray tracer.
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(serviceName, cfg.EnableTracing)
}

// ProvideClock supplies wall-clock record timestamps.
func ProvideClock() ports.Clock {
	return ports.SystemClock{}
}

func ProvideCreditLedger(s *Storage) ports.CreditLedger { return s.Ledger }
func ProvideAuditLog(s *Storage) ports.AuditLog         { return s.Audit }
func ProvideUnitOfWork(s *Storage) ports.UnitOfWork     { return s.UoW }
func ProvideHealthChecker(s *Storage) HealthChecker     { return s.Health }

// ProvideSoftRemoveHandler creates the soft-remove command handler.
func ProvideSoftRemoveHandler(
	audit ports.AuditLog,
	publisher ports.EventPublisher,
	dc *domainconfig.DomainConfig,
	logger *zap.Logger,
) *commands.SoftRemoveRecordHandler {
	return commands.NewSoftRemoveRecordHandler(audit, publisher, dc.StoreTimeout, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	executor *commandhandlers.OperationExecutor,
	softRemove *commands.SoftRemoveRecordHandler,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(bus.LoggingMiddleware(logger))

	if err := commandBus.Register(commands.ExecuteOperationCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			execCmd, ok := cmd.(commands.ExecuteOperationCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type %T", cmd)
			}
			return executor.Handle(ctx, execCmd)
		},
	)); err != nil {
		return nil, err
	}

	if err := commandBus.Register(commands.SoftRemoveRecordCommand{}, bus.CommandHandlerFunc(
		func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			removeCmd, ok := cmd.(commands.SoftRemoveRecordCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type %T", cmd)
			}
			return nil, softRemove.Handle(ctx, removeCmd)
		},
	)); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(history *queryhandlers.GetHistoryHandler, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(logger)

	if err := queryBus.Register(queries.GetHistoryQuery{}, querybus.QueryHandlerFunc(
		func(ctx context.Context, query querybus.Query) (interface{}, error) {
			historyQuery, ok := query.(queries.GetHistoryQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type %T", query)
			}
			return history.Handle(ctx, historyQuery)
		},
	)); err != nil {
		return nil, err
	}

	return queryBus, nil
}
