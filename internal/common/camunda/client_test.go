package camunda

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/metrics"
)

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = PermissionDenied", false},
		{"invalid argument", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(stderrors.New(tt.msg)))
		})
	}
}

func TestBackoff(t *testing.T) {
	rc := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, Backoff(rc, 0))
	assert.Equal(t, 2*time.Second, Backoff(rc, 1))
	assert.Equal(t, 4*time.Second, Backoff(rc, 2))
	assert.Equal(t, 5*time.Second, Backoff(rc, 3))
	assert.Equal(t, 5*time.Second, Backoff(rc, 70))
}

func TestMapZeebeError(t *testing.T) {
	assert.Equal(t, errors.ErrorCode("TIMEOUT_ERROR"),
		errors.CodeOf(mapZeebeError(stderrors.New("context deadline exceeded"), "zeebe:26500")))
	assert.Equal(t, errors.ErrorCode("EXTERNAL_SERVICE_ERROR"),
		errors.CodeOf(mapZeebeError(stderrors.New("connection refused"), "zeebe:26500")))
}

func TestInstrument(t *testing.T) {
	called := false
	var handler worker.JobHandler = func(_ worker.JobClient, job entities.Job) {
		called = true
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues("instrument-test")))
		assert.Equal(t, int64(7), job.Key)
	}

	Instrument("instrument-test", handler)(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7}})

	assert.True(t, called)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues("instrument-test")))
}
