package sendpushcampaign

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-admin/internal/audience"
	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/customers"
	"loyalty-admin/internal/dispatch"
	"loyalty-admin/internal/models"
)

// ==========================
// Test Helpers
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func population() customers.Static {
	return customers.Static{
		{ID: "c1", Username: "Ann", Country: "UAE", DeviceToken: "t1"},
		{ID: "c2", Username: "Anna", Country: "Qatar", DeviceToken: "t2"},
		{ID: "c3", Username: "Bob", Country: "UAE", DeviceToken: "t3"},
		{ID: "c4", Username: "Dan", Country: "UAE"},
	}
}

type recorder struct {
	requests []models.NotificationRequest
	reply    string
	err      error
}

func (r *recorder) SubmitNotification(_ context.Context, req models.NotificationRequest) (dispatch.Response, error) {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return dispatch.ParseResponse([]byte(r.reply)), nil
}

func newTestHandler(t *testing.T, source customers.Source, rec *recorder) *Handler {
	t.Helper()
	log := logger.NewTestLogger(t)
	h, err := NewHandler(HandlerOptions{
		Source:     source,
		Dispatcher: dispatch.NewDispatcher(rec, dispatch.Options{}, log, nil),
		Logger:     log,
	})
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return h
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Outcomes(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		wantStatus string
		success    int
		failure    int
		wantError  string
		wantCode   errors.ErrorCode
	}{
		{"all delivered", `{"results":[{"success":true},{"success":true},{"success":true}]}`, models.StatusSent, 3, 0, "", ""},
		{"partial", `{"results":[{"success":true},{"success":false},{"success":true}]}`, models.StatusPartiallyFailed, 2, 1, "", errors.ErrCodePartialDispatchFailure},
		{"none delivered", `{"results":[{"success":false}]}`, models.StatusFailed, 0, 1, "", errors.ErrCodeTotalDispatchFailure},
		{"service error", `{"error":"quota exceeded"}`, models.StatusFailed, 0, 0, "quota exceeded", errors.ErrCodeTotalDispatchFailure},
		{"malformed", `{}`, models.StatusFailed, 0, 0, dispatch.MalformedMessage, errors.ErrCodeTotalDispatchFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{reply: tt.reply}
			h := newTestHandler(t, population(), rec)

			out, err := h.Execute(context.Background(), &Input{Title: "Sale", Body: "Double points"})

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.success, out.SuccessCount)
			assert.Equal(t, tt.failure, out.FailureCount)
			assert.Equal(t, tt.wantError, out.Error)
			assert.Equal(t, string(tt.wantCode), out.ErrorCode)
			assert.NotEmpty(t, out.DispatchID)
			assert.Equal(t, "2026-03-01T09:30:00Z", out.SentAt)
			require.Len(t, rec.requests, 1)
			assert.Equal(t, []string{"t1", "t2", "t3"}, rec.requests[0].DeviceTokens)
		})
	}
}

func TestHandler_Execute_SelectedCustomers(t *testing.T) {
	rec := &recorder{reply: `{"results":[{"success":true},{"success":true}]}`}
	h := newTestHandler(t, population(), rec)

	_, err := h.Execute(context.Background(), &Input{
		Title: "Sale",
		Body:  "Double points",
		Audience: AudienceInput{
			Mode:        "selected",
			CustomerIDs: []string{"c3", "c1", "c3"},
		},
	})

	require.NoError(t, err)
	require.Len(t, rec.requests, 1)
	assert.Equal(t, []string{"t1", "t3"}, rec.requests[0].DeviceTokens)
}

func TestHandler_Execute_FilteredAudience(t *testing.T) {
	rec := &recorder{reply: `{"results":[{"success":true},{"success":true}]}`}
	h := newTestHandler(t, population(), rec)

	_, err := h.Execute(context.Background(), &Input{
		Title: "Sale",
		Body:  "Double points",
		Audience: AudienceInput{
			Mode:    ModeFiltered,
			Filters: audience.Filters{Country: "uae"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t3"}, rec.requests[0].DeviceTokens)
}

func TestHandler_Execute_ModeAllIgnoresFilters(t *testing.T) {
	rec := &recorder{reply: `{"results":[{"success":true},{"success":true},{"success":true}]}`}
	h := newTestHandler(t, population(), rec)

	_, err := h.Execute(context.Background(), &Input{
		Title:    "Sale",
		Body:     "Double points",
		Audience: AudienceInput{Mode: "all", Filters: audience.Filters{Country: "qatar"}},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, rec.requests[0].DeviceTokens)
}

func TestHandler_Execute_LocalErrorsNeverSubmit(t *testing.T) {
	tests := []struct {
		name   string
		source customers.Source
		input  Input
		want   error
	}{
		{
			name:   "no recipients",
			source: customers.Static{{ID: "c4", Username: "Dan"}},
			input:  Input{Title: "Sale", Body: "Double points"},
			want:   errors.ErrNoRecipients,
		},
		{
			name:   "unknown ids leave nobody to notify",
			source: population(),
			input:  Input{Title: "Sale", Body: "Double points", Audience: AudienceInput{Mode: "selected", CustomerIDs: []string{"c4", "zz"}}},
			want:   errors.ErrNoRecipients,
		},
		{
			name:   "selected without ids",
			source: population(),
			input:  Input{Title: "Sale", Body: "Double points", Audience: AudienceInput{Mode: "selected"}},
			want:   errors.ErrEmptyAudience,
		},
		{
			name:   "selected without ids ignores filters",
			source: population(),
			input:  Input{Title: "Sale", Body: "Double points", Audience: AudienceInput{Mode: "selected", Filters: audience.Filters{Country: "uae"}}},
			want:   errors.ErrEmptyAudience,
		},
		{
			name:   "filters match nobody",
			source: population(),
			input:  Input{Title: "Sale", Body: "Double points", Audience: AudienceInput{Mode: ModeFiltered, Filters: audience.Filters{Country: "Oman"}}},
			want:   errors.ErrEmptyAudience,
		},
		{
			name:   "filtered without filters",
			source: population(),
			input:  Input{Title: "Sale", Body: "Double points", Audience: AudienceInput{Mode: ModeFiltered, Filters: audience.Filters{Name: "  "}}},
			want:   errors.ErrValidationFailed,
		},
		{
			name:   "blank title",
			source: population(),
			input:  Input{Title: "  ", Body: "Double points"},
			want:   errors.ErrValidationFailed,
		},
		{
			name:   "bad mode",
			source: population(),
			input:  Input{Title: "Sale", Body: "Double points", Audience: AudienceInput{Mode: "some"}},
			want:   errors.ErrValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{reply: `{"results":[]}`}
			h := newTestHandler(t, tt.source, rec)

			out, err := h.Execute(context.Background(), &tt.input)

			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, rec.requests)
		})
	}
}

func TestHandler_Execute_TransportFailure(t *testing.T) {
	rec := &recorder{err: stderrors.New("connection reset")}
	h := newTestHandler(t, population(), rec)

	out, err := h.Execute(context.Background(), &Input{Title: "Sale", Body: "Double points"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, errors.ErrTransportFailed)
	assert.Len(t, rec.requests, 1)
}

func TestHandler_Execute_CustomerFetchFailure(t *testing.T) {
	source := customers.SourceFunc(func(context.Context) ([]models.Customer, error) {
		return nil, stderrors.New("dial tcp: refused")
	})
	rec := &recorder{}
	h := newTestHandler(t, source, rec)

	_, err := h.Execute(context.Background(), &Input{Title: "Sale", Body: "Double points"})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCustomerFetchFailed, errors.CodeOf(err))
	assert.True(t, errors.IsRetryableErrorCode(errors.CodeOf(err)))
	assert.Empty(t, rec.requests)
}

// ==========================
// Input parsing
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, population(), &recorder{})

	input, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"title": "Sale",
		"body":  "Double points",
		"audience": map[string]interface{}{
			"mode":        "selected",
			"customerIds": []string{"c1"},
			"filters":     map[string]interface{}{"country": "UAE"},
		},
	}))

	require.NoError(t, err)
	assert.Equal(t, "Sale", input.Title)
	assert.Equal(t, "selected", input.Audience.Mode)
	assert.Equal(t, []string{"c1"}, input.Audience.CustomerIDs)
	assert.Equal(t, "UAE", input.Audience.Filters.Country)
}

func TestHandler_ParseInput_Invalid(t *testing.T) {
	h := newTestHandler(t, population(), &recorder{})

	_, err := h.parseInput(createMockJob(2, map[string]interface{}{"title": "Sale"}))
	assert.ErrorIs(t, err, errors.ErrValidationFailed)

	_, err = h.parseInput(createMockJob(3, map[string]interface{}{
		"title": "Sale", "body": "x", "audience": map[string]interface{}{"mode": "everyone"},
	}))
	assert.ErrorIs(t, err, errors.ErrValidationFailed)
}

func TestNewHandler_RequiresCollaborators(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Logger: logger.NewTestLogger(t)})
	assert.Error(t, err)
}
