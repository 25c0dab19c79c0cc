package dispatch

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/common/observability"
	"loyalty-admin/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) SubmitNotification(ctx context.Context, req models.NotificationRequest) (Response, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(Response)
	return resp, args.Error(1)
}

func newTestDispatcher(t *testing.T, sub Submitter, opts Options) *Dispatcher {
	d := NewDispatcher(sub, opts, logger.NewTestLogger(t), nil)
	d.newID = func() string { return "dispatch-1" }
	return d
}

// ==========================
// ParseResponse / Summarize
// ==========================

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Response
	}{
		{
			name: "results",
			raw:  `{"results":[{"token":"t1","success":true},{"token":"t2","success":false,"error":"unregistered"}]}`,
			want: ResultsResponse{Results: []Result{
				{Token: "t1", Success: true},
				{Token: "t2", Success: false, Error: "unregistered"},
			}},
		},
		{
			name: "results win over error",
			raw:  `{"results":[{"success":true}],"error":"ignored"}`,
			want: ResultsResponse{Results: []Result{{Success: true}}},
		},
		{
			name: "empty results array",
			raw:  `{"results":[]}`,
			want: ResultsResponse{Results: []Result{}},
		},
		{
			name: "error",
			raw:  `{"error":"quota exceeded"}`,
			want: ErrorResponse{Message: "quota exceeded"},
		},
		{
			name: "empty object",
			raw:  `{}`,
			want: MalformedResponse{Raw: []byte(`{}`)},
		},
		{
			name: "null results",
			raw:  `{"results":null}`,
			want: MalformedResponse{Raw: []byte(`{"results":null}`)},
		},
		{
			name: "wrong results type",
			raw:  `{"results":"yes"}`,
			want: MalformedResponse{Raw: []byte(`{"results":"yes"}`)},
		},
		{
			name: "not json",
			raw:  `<html>502</html>`,
			want: MalformedResponse{Raw: []byte(`<html>502</html>`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseResponse([]byte(tt.raw)))
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want Summary
	}{
		{
			name: "all delivered",
			resp: ResultsResponse{Results: []Result{{Success: true}, {Success: true}}},
			want: Summary{SuccessCount: 2, Outcome: OutcomeSucceeded},
		},
		{
			name: "mixed results",
			resp: ResultsResponse{Results: []Result{{Success: true}, {Success: false}, {Success: true}}},
			want: Summary{SuccessCount: 2, FailureCount: 1, Outcome: OutcomePartiallyFailed},
		},
		{
			name: "nothing delivered",
			resp: ResultsResponse{Results: []Result{{Success: false}, {Success: false}}},
			want: Summary{FailureCount: 2, Outcome: OutcomeFailed},
		},
		{
			name: "service error",
			resp: ErrorResponse{Message: "quota exceeded"},
			want: Summary{FatalError: "quota exceeded", Outcome: OutcomeFailed},
		},
		{
			name: "malformed",
			resp: MalformedResponse{Raw: []byte(`{}`)},
			want: Summary{FatalError: MalformedMessage, Outcome: OutcomeFailed},
		},
		{
			name: "nil response fails closed",
			resp: nil,
			want: Summary{FatalError: MalformedMessage, Outcome: OutcomeFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(tt.resp))
		})
	}
}

func TestSummary_Err(t *testing.T) {
	assert.NoError(t, Summary{SuccessCount: 2, Outcome: OutcomeSucceeded}.Err())

	err := Summary{SuccessCount: 2, FailureCount: 1, Outcome: OutcomePartiallyFailed}.Err()
	assert.Equal(t, errors.ErrCodePartialDispatchFailure, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "success: 2, failure: 1")

	err = Summary{FatalError: "quota exceeded", Outcome: OutcomeFailed}.Err()
	assert.Equal(t, errors.ErrCodeTotalDispatchFailure, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "quota exceeded")

	err = Summary{FailureCount: 3, Outcome: OutcomeFailed}.Err()
	assert.Equal(t, errors.ErrCodeTotalDispatchFailure, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "none of 3 notifications delivered")
}

func TestOutcome_Status(t *testing.T) {
	assert.Equal(t, models.StatusSent, OutcomeSucceeded.Status())
	assert.Equal(t, models.StatusPartiallyFailed, OutcomePartiallyFailed.Status())
	assert.Equal(t, models.StatusFailed, OutcomeFailed.Status())
}

// ==========================
// Dispatch
// ==========================

func TestDispatch_PartialFailureEndToEnd(t *testing.T) {
	sub := new(MockSubmitter)
	tokens := []string{"t1", "t2", "t3"}
	expected := models.NotificationRequest{Title: "Sale", Body: "50% off", DeviceTokens: tokens}
	sub.On("SubmitNotification", mock.Anything, expected).
		Return(ParseResponse([]byte(`{"results":[{"success":true},{"success":false},{"success":true}]}`)), nil).
		Once()

	d := newTestDispatcher(t, sub, Options{})
	summary, err := d.Dispatch(context.Background(), "Sale", "50% off", tokens)

	require.NoError(t, err)
	assert.Equal(t, &Summary{
		DispatchID:   "dispatch-1",
		SuccessCount: 2,
		FailureCount: 1,
		Outcome:      OutcomePartiallyFailed,
	}, summary)
	sub.AssertNumberOfCalls(t, "SubmitNotification", 1)
}

func TestDispatch_FailsClosedOnEmptyObject(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("SubmitNotification", mock.Anything, mock.Anything).
		Return(ParseResponse([]byte(`{}`)), nil).Once()

	d := newTestDispatcher(t, sub, Options{})
	summary, err := d.Dispatch(context.Background(), "t", "b", []string{"t1"})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.SuccessCount)
	assert.Equal(t, 0, summary.FailureCount)
	assert.Equal(t, "unexpected response shape", summary.FatalError)
	assert.Equal(t, OutcomeFailed, summary.Outcome)
}

func TestDispatch_ServiceError(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("SubmitNotification", mock.Anything, mock.Anything).
		Return(ErrorResponse{Message: "invalid credentials"}, nil).Once()

	d := newTestDispatcher(t, sub, Options{})
	summary, err := d.Dispatch(context.Background(), "t", "b", []string{"t1"})

	require.NoError(t, err)
	assert.Equal(t, "invalid credentials", summary.FatalError)
	assert.Equal(t, OutcomeFailed, summary.Outcome)
}

func TestDispatch_TransportError(t *testing.T) {
	sub := new(MockSubmitter)
	sub.On("SubmitNotification", mock.Anything, mock.Anything).
		Return(nil, stderrors.New("connection refused")).Once()

	d := newTestDispatcher(t, sub, Options{})
	summary, err := d.Dispatch(context.Background(), "t", "b", []string{"t1", "t2"})

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrTransportFailed))
	require.NotNil(t, summary)
	assert.Equal(t, OutcomeFailed, summary.Outcome)
	assert.Equal(t, "connection refused", summary.FatalError)
	assert.Equal(t, "dispatch-1", summary.DispatchID)
	sub.AssertNumberOfCalls(t, "SubmitNotification", 1)
}

func TestDispatch_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		body   string
		tokens []string
		opts   Options
		want   error
	}{
		{"missing title", "", "body", []string{"t1"}, Options{}, errors.ErrValidationFailed},
		{"blank body", "title", "   ", []string{"t1"}, Options{}, errors.ErrValidationFailed},
		{"no tokens", "title", "body", nil, Options{}, errors.ErrNoRecipients},
		{"over batch cap", "title", "body", []string{"a", "b", "c"}, Options{MaxBatchSize: 2}, errors.ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := new(MockSubmitter)
			d := newTestDispatcher(t, sub, tt.opts)

			summary, err := d.Dispatch(context.Background(), tt.title, tt.body, tt.tokens)

			assert.Nil(t, summary)
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)
			sub.AssertNotCalled(t, "SubmitNotification", mock.Anything, mock.Anything)
		})
	}
}

func TestDispatch_ValidationListsBothFields(t *testing.T) {
	d := newTestDispatcher(t, new(MockSubmitter), Options{})

	_, err := d.Dispatch(context.Background(), " ", "", []string{"t1"})

	stdErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "body, title", stdErr.Details)
	assert.Contains(t, stdErr.Metadata, "title")
	assert.Contains(t, stdErr.Metadata, "body")
}

func TestDispatch_BatchAtCapIsSentWhole(t *testing.T) {
	tokens := []string{"a", "b", "a"}
	sub := new(MockSubmitter)
	sub.On("SubmitNotification", mock.Anything, mock.MatchedBy(func(req models.NotificationRequest) bool {
		return strings.Join(req.DeviceTokens, ",") == "a,b,a"
	})).Return(ResultsResponse{Results: []Result{{Success: true}, {Success: true}, {Success: true}}}, nil).Once()

	d := newTestDispatcher(t, sub, Options{MaxBatchSize: 3})
	summary, err := d.Dispatch(context.Background(), "t", "b", tokens)

	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, summary.Outcome)
	assert.Equal(t, 3, summary.SuccessCount)
	sub.AssertExpectations(t)
}

func TestDispatch_TimeoutBoundsSubmit(t *testing.T) {
	sub := SubmitterFunc(func(ctx context.Context, _ models.NotificationRequest) (Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	d := newTestDispatcher(t, sub, Options{Timeout: 10 * time.Millisecond})
	summary, err := d.Dispatch(context.Background(), "t", "b", []string{"t1"})

	assert.True(t, stderrors.Is(err, errors.ErrTransportFailed))
	assert.Equal(t, OutcomeFailed, summary.Outcome)
	assert.Equal(t, context.DeadlineExceeded.Error(), summary.FatalError)
}

func TestDispatch_RecordsSubmitSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	obs := observability.New("dispatch-test",
		observability.WithSpanProcessor(rec),
		observability.WithRegisterer(prometheus.NewRegistry()),
	)
	t.Cleanup(obs.Shutdown)

	sub := SubmitterFunc(func(context.Context, models.NotificationRequest) (Response, error) {
		return ResultsResponse{Results: []Result{{Success: true}, {Success: false}}}, nil
	})
	d := NewDispatcher(sub, Options{}, logger.NewTestLogger(t), obs)
	d.newID = func() string { return "dispatch-1" }

	_, err := d.Dispatch(context.Background(), "Sale", "50% off", []string{"t1", "t2"})
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "dispatch.submit", spans[0].Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "dispatch-1", attrs["dispatch.id"].AsString())
	assert.Equal(t, int64(2), attrs["dispatch.tokens"].AsInt64())
	assert.Equal(t, string(OutcomePartiallyFailed), attrs["dispatch.outcome"].AsString())
	assert.Equal(t, int64(1), attrs["dispatch.success"].AsInt64())
	assert.Equal(t, int64(1), attrs["dispatch.failure"].AsInt64())
}
