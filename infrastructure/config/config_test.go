package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("STORAGE_BACKEND", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageDynamoDB, cfg.StorageBackend)
	assert.Equal(t, "query", cfg.HistoryStrategy)
	assert.Equal(t, 4, cfg.HistoryScanSegments)
	assert.Equal(t, time.Minute, cfg.CostCacheTTL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "SQLite")
	t.Setenv("STORE_TIMEOUT", "1500")
	t.Setenv("RANDOM_STRING_TIMEOUT", "2s")
	t.Setenv("HISTORY_STRATEGY", "scan")
	t.Setenv("ENABLE_METRICS", "yes")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StorageSQLite, cfg.StorageBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 2*time.Second, cfg.RandomStringTimeout)
	assert.Equal(t, "scan", cfg.HistoryStrategy)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment:         "development",
			StorageBackend:      StorageMemory,
			CostSource:          CostSourceFile,
			HistoryStrategy:     "query",
			HistoryScanSegments: 1,
			OperationsTable:     "operations",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "postgres" }, wantErr: "STORAGE_BACKEND"},
		{name: "store costs", mutate: func(c *Config) { c.CostSource = CostSourceStore }},
		{name: "unknown cost source", mutate: func(c *Config) { c.CostSource = "s3" }, wantErr: "COST_SOURCE"},
		{name: "unknown strategy", mutate: func(c *Config) { c.HistoryStrategy = "index" }, wantErr: "HISTORY_STRATEGY"},
		{name: "production needs api key", mutate: func(c *Config) {
			c.Environment = "production"
			c.JWTSecret = "s"
		}, wantErr: "RANDOM_STRING_API_KEY"},
		{name: "production server needs jwt secret", mutate: func(c *Config) {
			c.Environment = "production"
			c.RandomStringAPIKey = "k"
		}, wantErr: "JWT_SECRET"},
		{name: "production lambda skips jwt secret", mutate: func(c *Config) {
			c.Environment = "production"
			c.RandomStringAPIKey = "k"
			c.IsLambda = true
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseCosts(t *testing.T) {
	costs, err := ParseCosts([]byte("costs:\n  addition: 1\n  random-str: 2.5\n"))
	require.NoError(t, err)
	assert.True(t, costs[operations.Addition].Equals(valueobjects.NewCredits(1)))
	want, _ := valueobjects.ParseCredits("2.5")
	assert.True(t, costs[operations.RandomString].Equals(want))

	_, err = ParseCosts([]byte("costs:\n  addition: -1\n"))
	assert.Error(t, err)

	_, err = ParseCosts([]byte("costs: {}\n"))
	assert.Error(t, err)

	_, err = ParseCosts([]byte("costs:\n  addition: lots\n"))
	assert.Error(t, err)
}

func TestResolveCosts(t *testing.T) {
	cfg := &Config{}
	costs, err := cfg.ResolveCosts()
	require.NoError(t, err)
	assert.Len(t, costs, 6)

	path := filepath.Join(t.TempDir(), "costs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("costs:\n  division: 3\n"), 0o600))
	cfg.OperationCostsFile = path
	costs, err = cfg.ResolveCosts()
	require.NoError(t, err)
	assert.Len(t, costs, 1)
	assert.True(t, costs[operations.Division].Equals(valueobjects.NewCredits(3)))
}
