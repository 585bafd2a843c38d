package randomorg

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	appErrors "mathops/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generateStrings", req.Method)
		assert.Equal(t, "secret", req.Params.APIKey)
		assert.Equal(t, 2, req.Params.N)
		assert.Equal(t, 4, req.Params.Length)

		data := make([]string, req.Params.N)
		for i := range data {
			data[i] = strings.Repeat("a", req.Params.Length)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"result":  map[string]interface{}{"random": map[string]interface{}{"data": data}, "requestsLeft": 99},
			"id":      req.ID,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "secret", Endpoint: srv.URL}, srv.Client(), zap.NewNop())
	out, err := c.Generate(context.Background(), 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaaa", "aaaa"}, out)
}

func TestClient_UpstreamErrorsAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"error":   map[string]interface{}{"code": 401, "message": "key not running"},
			"id":      1,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL}, srv.Client(), zap.NewNop())
	_, err := c.Generate(context.Background(), 1, 1)
	require.Error(t, err)
	assert.True(t, appErrors.IsUnavailable(err))
	assert.ErrorContains(t, err, "key not running")
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL, MinRequests: 3, FailureThreshold: 0.5, Timeout: time.Minute},
		srv.Client(), zap.NewNop())
	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), 1, 1)
		assert.True(t, appErrors.IsUnavailable(err))
	}

	_, err := c.Generate(context.Background(), 1, 1)
	assert.True(t, appErrors.IsUnavailable(err))
	assert.Equal(t, int32(3), hits.Load(), "open breaker must not reach upstream")
}

func TestClient_DeadlinePassesThrough(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{Endpoint: srv.URL}, srv.Client(), zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Generate(ctx, 1, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalGenerator(t *testing.T) {
	out, err := LocalGenerator{}.Generate(context.Background(), 3, 8)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, s := range out {
		assert.Len(t, s, 8)
		for _, r := range s {
			assert.Contains(t, Alphanumeric, string(r))
		}
	}
}
