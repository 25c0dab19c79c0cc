// internal/workers/principal/normalize-permissions/handler.go
package normalizepermissions

import (
	"context"
	"encoding/json"
	"fmt"

	"loyalty-admin/internal/common/config"
	"loyalty-admin/internal/common/errors"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/common/metrics"
	"loyalty-admin/internal/common/validation"
	"loyalty-admin/internal/models"
	"loyalty-admin/internal/permission"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "normalize-permissions"

// PrincipalStore persists a principal's permission map.
type PrincipalStore interface {
	UpdatePrincipalPermissions(ctx context.Context, kind models.PrincipalKind, id string, perms permission.Map) error
}

type Handler struct {
	config       *Config
	store        PrincipalStore
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig *config.Config
	Store     PrincipalStore
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) *Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       createConfigFromAppConfig(opts.AppConfig),
		store:        opts.Store,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.Execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}

	result, err := validation.NormalizePermissionsInput.Validate(variables)
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

// Execute expands the sparse permission object into the principal's full
// catalog map and the ordered list of granted capabilities.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	kind := models.PrincipalKind(input.PrincipalType)
	catalog, ok := permission.ForPrincipal(kind)
	if !ok {
		return nil, errors.NewInvalidPrincipalError(input.PrincipalType)
	}

	capabilities := permission.Decode(permission.FromLoose(input.Permissions), catalog)
	output := &Output{
		Permissions:  permission.EncodeDescriptors(capabilities, catalog),
		Capabilities: capabilities,
	}

	if input.PrincipalID != "" && h.store != nil {
		if err := h.store.UpdatePrincipalPermissions(ctx, kind, input.PrincipalID, output.Permissions); err != nil {
			return nil, errors.NewExternalServiceError("api", fmt.Errorf("persist permissions: %w", err))
		}
		output.Persisted = true
	}

	h.logger.Debug("permissions normalized", map[string]interface{}{
		"principalType": kind,
		"granted":       len(capabilities),
		"catalogSize":   catalog.Len(),
		"persisted":     output.Persisted,
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}
