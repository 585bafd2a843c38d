// Command seed creates or resets an account and writes the operation price
// table into the configured storage backend. It can also mint a development
// token for the local server.
//
// Flags:
//
//	--email     account to create or reset (optional)
//	--balance   starting credit balance (default 100)
//	--status    active or inactive (default active)
//	--costs     YAML price table to store (default: built-in prices)
//	--token     print a signed JWT for --email, using JWT_SECRET
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/infrastructure/config"
	"mathops/infrastructure/di"
	"mathops/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	email := flag.String("email", "", "account to create or reset")
	balance := flag.String("balance", "100", "starting credit balance")
	status := flag.String("status", string(entities.AccountActive), "account status: active or inactive")
	costsFile := flag.String("costs", "", "YAML price table to store")
	mintToken := flag.Bool("token", false, "print a signed JWT for --email")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.StorageBackend == config.StorageMemory {
		logger.Fatal("Seeding the memory backend has no effect; use sqlite or dynamodb")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		logger.Fatal("Load AWS config", zap.Error(err))
	}
	storage, cleanup, err := di.ProvideStorage(cfg, di.ProvideDynamoDBClient(awsCfg, cfg), logger)
	if err != nil {
		logger.Fatal("Open storage", zap.Error(err))
	}
	defer cleanup()

	costs := config.DefaultCosts()
	if *costsFile != "" {
		if costs, err = config.LoadCosts(*costsFile); err != nil {
			logger.Fatal("Load costs", zap.Error(err))
		}
	}
	if err := storage.Seeder.PutCosts(ctx, costs); err != nil {
		logger.Fatal("Store costs", zap.Error(err))
	}
	logger.Info("Stored operation costs", zap.Int("operations", len(costs)))

	if *email == "" {
		return
	}

	identity, err := valueobjects.NewIdentity(*email)
	if err != nil {
		logger.Fatal("Invalid email", zap.Error(err))
	}
	credits, err := valueobjects.ParseCredits(*balance)
	if err != nil {
		logger.Fatal("Invalid balance", zap.Error(err))
	}
	account, err := entities.NewAccount(identity, entities.AccountStatus(*status), credits)
	if err != nil {
		logger.Fatal("Invalid account", zap.Error(err))
	}
	if err := storage.Seeder.PutAccount(ctx, account); err != nil {
		logger.Fatal("Store account", zap.Error(err))
	}
	logger.Info("Stored account",
		zap.String("identity", identity.String()),
		zap.String("balance", credits.String()),
		zap.String("status", *status),
	)

	if *mintToken {
		if cfg.JWTSecret == "" {
			logger.Fatal("JWT_SECRET is required to mint a token")
		}
		gen, err := auth.NewJWTGenerator(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)
		if err != nil {
			logger.Fatal("Create token generator", zap.Error(err))
		}
		token, err := gen.GenerateToken(uuid.NewString(), identity.String())
		if err != nil {
			logger.Fatal("Sign token", zap.Error(err))
		}
		fmt.Fprintln(os.Stdout, token)
	}
}
