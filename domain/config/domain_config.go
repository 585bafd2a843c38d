package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// History paging
	DefaultHistoryLimit int
	MaxHistoryLimit     int

	// Settlement: how many times a debit+record commit is attempted before
	// the request is reported as unavailable.
	MaxSettleAttempts int

	// Time constraints
	StoreTimeout        time.Duration
	RandomStringTimeout time.Duration

	// Audit behavior
	ExcludeRemovedByDefault bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultHistoryLimit: 10,
		MaxHistoryLimit:     100,

		MaxSettleAttempts: 3,

		StoreTimeout:        3 * time.Second,
		RandomStringTimeout: 5 * time.Second,

		ExcludeRemovedByDefault: false,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Lambda has a 10s budget per invocation.
	config.StoreTimeout = 2 * time.Second
	config.RandomStringTimeout = 4 * time.Second

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	config.MaxSettleAttempts = 5
	config.StoreTimeout = 10 * time.Second

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.DefaultHistoryLimit <= 0 || c.DefaultHistoryLimit > c.MaxHistoryLimit {
		return fmt.Errorf("default history limit %d must be within 1..%d", c.DefaultHistoryLimit, c.MaxHistoryLimit)
	}
	if c.MaxSettleAttempts < 1 {
		return fmt.Errorf("max settle attempts must be at least 1")
	}
	if c.StoreTimeout <= 0 || c.RandomStringTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}
