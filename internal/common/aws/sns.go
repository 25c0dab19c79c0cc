// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/dispatch"
	"loyalty-admin/internal/models"
)

// SNSService is the part of the SNS API the submitter uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewSNSClient loads the default AWS credential chain for region.
func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

const defaultConcurrency = 8

// SNSPushSubmitter fans one notification out to SNS platform endpoints.
// Every device token is an endpoint ARN.
type SNSPushSubmitter struct {
	client      SNSService
	concurrency int
	logger      logger.Logger
}

func NewSNSPushSubmitter(client SNSService, concurrency int, log logger.Logger) *SNSPushSubmitter {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &SNSPushSubmitter{
		client:      client,
		concurrency: concurrency,
		logger:      logger.Component(log, "sns-push"),
	}
}

// SubmitNotification publishes once per token and reports each endpoint in a
// ResultsResponse, in token order. Endpoint failures are failed results. When
// ctx ends mid fan-out, tokens that were never published are failed results
// carrying the context error, so delivered endpoints are still counted. The
// call only errors when the payload cannot be built.
func (s *SNSPushSubmitter) SubmitNotification(ctx context.Context, req models.NotificationRequest) (dispatch.Response, error) {
	message, err := buildMessage(req.Title, req.Body)
	if err != nil {
		return nil, err
	}

	results := make([]dispatch.Result, len(req.DeviceTokens))
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	started := 0
fanOut:
	for i, token := range req.DeviceTokens {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break fanOut
		}
		if ctx.Err() != nil {
			<-sem
			break
		}

		started++
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.publish(ctx, token, message)
		}(i, token)
	}
	wg.Wait()

	if skipped := len(req.DeviceTokens) - started; skipped > 0 {
		reason := ctx.Err().Error()
		for i := started; i < len(req.DeviceTokens); i++ {
			results[i] = dispatch.Result{Token: req.DeviceTokens[i], Success: false, Error: reason}
		}
		s.logger.Warn("SNS fan-out cut short", map[string]interface{}{
			"published": started,
			"skipped":   skipped,
			"error":     reason,
		})
	}
	return dispatch.ResultsResponse{Results: results}, nil
}

func (s *SNSPushSubmitter) publish(ctx context.Context, endpointARN, message string) dispatch.Result {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        awssdk.String(endpointARN),
		Message:          awssdk.String(message),
		MessageStructure: awssdk.String("json"),
	})
	if err != nil {
		s.logger.Warn("SNS publish failed", map[string]interface{}{
			"endpoint": endpointARN,
			"error":    err,
		})
		return dispatch.Result{Token: endpointARN, Success: false, Error: err.Error()}
	}
	return dispatch.Result{Token: endpointARN, Success: true}
}

// buildMessage renders the MessageStructure=json envelope: a default body
// plus per-platform payloads, each itself a JSON string.
func buildMessage(title, body string) (string, error) {
	gcm, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{"title": title, "body": body},
	})
	if err != nil {
		return "", fmt.Errorf("build gcm payload: %w", err)
	}
	apns, err := json.Marshal(map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": map[string]string{"title": title, "body": body},
			"sound": "default",
		},
	})
	if err != nil {
		return "", fmt.Errorf("build apns payload: %w", err)
	}

	envelope, err := json.Marshal(map[string]string{
		"default":      body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", fmt.Errorf("build sns message: %w", err)
	}
	return string(envelope), nil
}
