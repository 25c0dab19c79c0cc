// internal/workers/notification/send-push-campaign/handler.go
package sendpushcampaign

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loyalty-admin/internal/audience"
	"loyalty-admin/internal/common/config"
	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/common/metrics"
	"loyalty-admin/internal/common/validation"
	"loyalty-admin/internal/compose"
	"loyalty-admin/internal/customers"
	"loyalty-admin/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "send-push-campaign"

type Handler struct {
	config       *Config
	source       customers.Source
	dispatcher   compose.Dispatcher
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	now          func() time.Time
}

type HandlerOptions struct {
	AppConfig  *config.Config
	Source     customers.Source
	Dispatcher compose.Dispatcher
	Logger     logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Source == nil || opts.Dispatcher == nil {
		return nil, fmt.Errorf("%s requires a customer source and a dispatcher", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		source:       opts.Source,
		dispatcher:   opts.Dispatcher,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		now:          time.Now,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}

	result, err := validation.SendPushCampaignInput.Validate(variables)
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	if !result.Valid {
		return nil, errors.NewValidationError(result.FieldMessages())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInputParsingError(err)
	}
	return &input, nil
}

// Execute runs one campaign through a fresh compose session so the job gets
// the same validation, audience and dispatch rules as the console.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	mode, byFilter, err := resolveMode(input.Audience)
	if err != nil {
		return nil, err
	}

	session := compose.NewSession(h.source, h.dispatcher, h.logger)
	defer session.Close()

	if err := session.Open(ctx); err != nil {
		return nil, err
	}
	if err := session.SetTitle(input.Title); err != nil {
		return nil, err
	}
	if err := session.SetBody(input.Body); err != nil {
		return nil, err
	}
	applyAudience(session.Selector(), mode, byFilter, input.Audience)

	summary, err := session.Submit(ctx)
	if err != nil {
		return nil, err
	}

	output := &Output{
		DispatchID:   summary.DispatchID,
		Status:       summary.Outcome.Status(),
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
		Error:        summary.FatalError,
		SentAt:       h.now().UTC().Format(time.RFC3339),
	}
	if outcomeErr := summary.Err(); outcomeErr != nil {
		output.ErrorCode = string(errors.CodeOf(outcomeErr))
	}

	h.logger.Info("campaign dispatched", map[string]interface{}{
		"dispatchId":   output.DispatchID,
		"status":       output.Status,
		"successCount": output.SuccessCount,
		"failureCount": output.FailureCount,
		"errorCode":    output.ErrorCode,
	})
	return output, nil
}

// resolveMode maps the job's audience mode onto a selector mode. "filtered"
// selects the filtered view and needs at least one filter.
func resolveMode(in AudienceInput) (audience.Mode, bool, error) {
	if in.Mode == ModeFiltered {
		if in.Filters.IsZero() {
			return "", false, errors.NewValidationError(map[string]string{
				"audience.filters": "A filtered audience needs at least one filter",
			})
		}
		return audience.ModeSelected, true, nil
	}
	mode, err := audience.ParseMode(in.Mode)
	if err != nil {
		return "", false, errors.NewValidationError(map[string]string{"audience.mode": err.Error()})
	}
	return mode, false, nil
}

// applyAudience configures sel. In selected mode only the listed ids are
// selected, so an empty list resolves to an empty audience.
func applyAudience(sel *audience.Selector, mode audience.Mode, byFilter bool, in AudienceInput) {
	sel.SetMode(mode)
	sel.SetFilters(in.Filters)
	if mode != audience.ModeSelected {
		return
	}
	if byFilter {
		sel.SelectAllFiltered()
		return
	}
	for _, id := range in.CustomerIDs {
		cid := models.CustomerID(id)
		if !sel.IsSelected(cid) {
			sel.Toggle(cid)
		}
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
