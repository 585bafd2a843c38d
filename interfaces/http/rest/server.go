package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mathops/infrastructure/di"
	"mathops/interfaces/http/rest/middleware"
	"mathops/pkg/auth"
)

const limiterSweepInterval = 10 * time.Minute

// NewHandler assembles the HTTP surface for a container. Lambda trusts the
// API Gateway authorizer and leaves throttling to the gateway; the local
// server validates its own tokens and limits per caller. ctx bounds the
// background limiter sweeper.
func NewHandler(ctx context.Context, c *di.Container) (http.Handler, error) {
	cfg := c.Config
	opts := Options{
		Collector:  c.Collector,
		EnableCORS: cfg.EnableCORS,
		Debug:      cfg.IsDevelopment(),
	}

	rt := NewRouter(c.CommandBus, c.QueryBus, c.Health, c.Logger, opts)

	switch {
	case cfg.IsLambda:
		rt.opts.Authenticator = middleware.AuthenticateForLambda(rt.ErrorHandler(), c.Logger)
	case cfg.JWTSecret != "":
		validator, err := auth.NewJWTValidator(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("create jwt validator: %w", err)
		}
		rt.opts.Authenticator = middleware.Authenticate(validator, rt.ErrorHandler(), c.Logger)
	default:
		c.Logger.Warn("JWT_SECRET not set; API is unauthenticated")
	}

	if !cfg.IsLambda && cfg.RateLimitRPS > 0 {
		limiter := auth.NewTokenBucketLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.RunSweeper(ctx, limiterSweepInterval)
		rt.opts.RateLimiter = auth.NewIdentityRateLimiter(limiter)
		rt.opts.RateBurst = cfg.RateLimitBurst
	}

	return rt.Setup(), nil
}
