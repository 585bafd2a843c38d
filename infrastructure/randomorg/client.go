// Package randomorg generates random strings through the random.org
// JSON-RPC API.
package randomorg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	appErrors "mathops/pkg/errors"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultEndpoint is the random.org JSON-RPC endpoint.
const DefaultEndpoint = "https://api.random.org/json-rpc/4/invoke"

// Alphanumeric is the character set requested for generated strings.
const Alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Config configures the client.
type Config struct {
	APIKey   string
	Endpoint string
	// Breaker settings; zero values take the defaults below.
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// Client implements operations.StringGenerator.
type Client struct {
	http     *http.Client
	endpoint string
	apiKey   string
	breaker  *gobreaker.CircuitBreaker
	nextID   atomic.Int64
	logger   *zap.Logger
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 0.6
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}

	c := &Client{
		http:     httpClient,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		logger:   logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "random.org",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// The caller giving up says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

type rpcRequest struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  generateParams `json:"params"`
	ID      int64          `json:"id"`
}

type generateParams struct {
	APIKey      string `json:"apiKey"`
	N           int    `json:"n"`
	Length      int    `json:"length"`
	Characters  string `json:"characters"`
	Replacement bool   `json:"replacement"`
}

type rpcResponse struct {
	Result *struct {
		Random struct {
			Data []string `json:"data"`
		} `json:"random"`
		RequestsLeft int64 `json:"requestsLeft"`
		BitsLeft     int64 `json:"bitsLeft"`
	} `json:"result"`
	Error *rpcError `json:"error"`
	ID    int64     `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("random.org error %d: %s", e.Code, e.Message)
}

// Generate returns count strings of the given length.
func (c *Client) Generate(ctx context.Context, count, length int) ([]string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generate(ctx, count, length)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, appErrors.NewUnavailableError("random.org").WithCause(err)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		if appErrors.IsAppError(err) {
			return nil, err
		}
		return nil, appErrors.NewUnavailableError("random.org").WithCause(err)
	}
	return out.([]string), nil
}

func (c *Client) generate(ctx context.Context, count, length int) ([]string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "generateStrings",
		Params: generateParams{
			APIKey:      c.apiKey,
			N:           count,
			Length:      length,
			Characters:  Alphanumeric,
			Replacement: true,
		},
		ID: c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("random.org request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("random.org returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var rpc rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpc); err != nil {
		return nil, fmt.Errorf("failed to decode random.org response: %w", err)
	}
	if rpc.Error != nil {
		return nil, rpc.Error
	}
	if rpc.Result == nil || len(rpc.Result.Random.Data) != count {
		return nil, fmt.Errorf("random.org returned an unexpected payload")
	}

	c.logger.Debug("Random strings generated",
		zap.Int("count", count),
		zap.Int("length", length),
		zap.Int64("requests_left", rpc.Result.RequestsLeft),
	)
	return rpc.Result.Random.Data, nil
}
