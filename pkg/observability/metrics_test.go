package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mathops/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestMetrics_RecordOperation(t *testing.T) {
	client := new(mockCloudWatch)
	client.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		return aws.ToString(in.Namespace) == "MathOps/test" && len(in.MetricData) == 3
	})).Return(nil).Once()
	client.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		return len(in.MetricData) == 2
	})).Return(errors.New("throttled")).Once()

	m := NewMetrics("MathOps/test", client, zap.NewNop())
	m.RecordOperation(context.Background(), "addition", "success", valueobjects.NewCredits(2), 15*time.Millisecond)
	m.RecordOperation(context.Background(), "addition", "precondition_failed", valueobjects.Credits{}, time.Millisecond)

	client.AssertExpectations(t)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.RecordOperation(context.Background(), "addition", "success", valueobjects.NewCredits(1), 0)
	})
}

func TestCollector(t *testing.T) {
	c := NewCollector("mathops_test")
	c.RecordOperation(context.Background(), "division", "success", valueobjects.NewCredits(3), time.Millisecond)
	c.RecordOperation(context.Background(), "division", "not_found", valueobjects.Credits{}, time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/{operation}", "200", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("division", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Operations.WithLabelValues("division", "not_found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.CreditsDebited.WithLabelValues("division")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/api/{operation}", "200")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mathops_test_operations_total")
}

func TestTracer_DisabledRunsFunction(t *testing.T) {
	tr := NewTracer("mathops", false)
	called := false
	err := tr.TraceFunction(context.Background(), "step", func(context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	var nilTracer *Tracer
	assert.NotPanics(t, func() { nilTracer.RecordError(context.Background(), errors.New("x")) })
}
