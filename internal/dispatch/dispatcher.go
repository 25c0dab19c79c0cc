// internal/dispatch/dispatcher.go
package dispatch

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/common/metrics"
	"loyalty-admin/internal/common/observability"
	"loyalty-admin/internal/models"
)

// Submitter delivers one batched notification request. A returned error is a
// transport failure; application-level failures come back as a Response.
type Submitter interface {
	SubmitNotification(ctx context.Context, req models.NotificationRequest) (Response, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, req models.NotificationRequest) (Response, error)

func (f SubmitterFunc) SubmitNotification(ctx context.Context, req models.NotificationRequest) (Response, error) {
	return f(ctx, req)
}

type Options struct {
	// MaxBatchSize rejects token lists longer than this. Zero means unlimited.
	MaxBatchSize int
	// Timeout bounds the submit call. Zero leaves the caller's context alone.
	Timeout time.Duration
}

type Dispatcher struct {
	submitter Submitter
	opts      Options
	logger    logger.Logger
	obs       *observability.Observability
	newID     func() string
}

func NewDispatcher(submitter Submitter, opts Options, log logger.Logger, obs *observability.Observability) *Dispatcher {
	if obs == nil {
		obs = observability.Noop()
	}
	return &Dispatcher{
		submitter: submitter,
		opts:      opts,
		logger:    logger.Component(log, "dispatcher"),
		obs:       obs,
		newID:     uuid.NewString,
	}
}

// Dispatch submits title and body to every token in a single request and
// interprets the reply. It never retries.
//
// Precondition failures return a nil Summary. A transport failure returns a
// Failed Summary together with a TRANSPORT_FAILED error. Every reply the
// service sends back, including error and malformed replies, returns a
// Summary and a nil error.
func (d *Dispatcher) Dispatch(ctx context.Context, title, body string, tokens []string) (*Summary, error) {
	if err := d.checkPreconditions(title, body, tokens); err != nil {
		metrics.DispatchRejected.WithLabelValues(string(errors.CodeOf(err))).Inc()
		d.logger.Warn("Dispatch rejected before submission", map[string]interface{}{
			"error_code": errors.CodeOf(err),
			"tokens":     len(tokens),
		})
		return nil, err
	}

	id := d.newID()
	ctx, span := d.obs.StartSpan(ctx, "dispatch.submit",
		attribute.String("dispatch.id", id),
		attribute.Int("dispatch.tokens", len(tokens)),
	)
	defer span.End()

	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	req := models.NotificationRequest{Title: title, Body: body, DeviceTokens: tokens}

	d.logger.Info("Submitting notification", map[string]interface{}{
		"dispatch_id": id,
		"tokens":      len(tokens),
	})

	start := time.Now()
	resp, err := d.submitter.SubmitNotification(ctx, req)
	duration := time.Since(start)
	metrics.DispatchDuration.Observe(duration.Seconds())

	if err != nil {
		summary := &Summary{DispatchID: id, FatalError: err.Error(), Outcome: OutcomeFailed}
		d.record(ctx, summary, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		d.logger.Error("Notification transport failed", map[string]interface{}{
			"dispatch_id": id,
			"error":       err,
		})
		return summary, errors.NewTransportError(err)
	}

	summary := Summarize(resp)
	summary.DispatchID = id
	d.record(ctx, &summary, duration)

	span.SetAttributes(
		attribute.String("dispatch.outcome", string(summary.Outcome)),
		attribute.Int("dispatch.success", summary.SuccessCount),
		attribute.Int("dispatch.failure", summary.FailureCount),
	)
	if summary.Outcome == OutcomeFailed {
		span.SetStatus(codes.Error, summary.FatalError)
	}

	fields := map[string]interface{}{
		"dispatch_id":   id,
		"outcome":       summary.Outcome,
		"success_count": summary.SuccessCount,
		"failure_count": summary.FailureCount,
		"duration_ms":   duration.Milliseconds(),
	}
	switch summary.Outcome {
	case OutcomeSucceeded:
		d.logger.Info("Notification dispatched", fields)
	case OutcomePartiallyFailed:
		fields["error_code"] = errors.CodeOf(summary.Err())
		d.logger.Warn("Notification partially delivered", fields)
	default:
		fields["error_code"] = errors.CodeOf(summary.Err())
		fields["fatal_error"] = summary.FatalError
		d.logger.Error("Notification dispatch failed", fields)
	}

	return &summary, nil
}

func (d *Dispatcher) checkPreconditions(title, body string, tokens []string) error {
	fields := make(map[string]string)
	if strings.TrimSpace(title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(body) == "" {
		fields["body"] = "Body is required"
	}
	if len(fields) > 0 {
		return errors.NewValidationError(fields)
	}
	if len(tokens) == 0 {
		return errors.NewNoRecipientsError(0)
	}
	if d.opts.MaxBatchSize > 0 && len(tokens) > d.opts.MaxBatchSize {
		return errors.NewBatchTooLargeError(len(tokens), d.opts.MaxBatchSize)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, s *Summary, duration time.Duration) {
	metrics.DispatchTotal.WithLabelValues(string(s.Outcome)).Inc()
	metrics.DispatchTokens.WithLabelValues("success").Add(float64(s.SuccessCount))
	metrics.DispatchTokens.WithLabelValues("failure").Add(float64(s.FailureCount))
	d.obs.RecordDispatch(ctx, string(s.Outcome), duration, s.SuccessCount, s.FailureCount)
}
