// cmd/push-manager/deps.go
package main

import (
	"context"
	"fmt"
	"time"

	"loyalty-admin/internal/api"
	"loyalty-admin/internal/common/aws"
	"loyalty-admin/internal/common/config"
	"loyalty-admin/internal/common/database"
	"loyalty-admin/internal/common/logger"
	"loyalty-admin/internal/customers"
	"loyalty-admin/internal/dispatch"
	np "loyalty-admin/internal/workers/principal/normalize-permissions"
)

type dependencies struct {
	source     customers.Source
	submitter  dispatch.Submitter
	principals np.PrincipalStore

	postgres *database.PostgresClient
	es       *database.ElasticsearchClient
	redis    *database.RedisClient
}

// buildDependencies connects the configured customer source, cache and
// submitter. Backing stores are pinged with retries before use.
func buildDependencies(ctx context.Context, cfg *config.Config, log logger.Logger) (*dependencies, error) {
	d := &dependencies{}

	var apiClient *api.Client
	if cfg.API.BaseURL != "" {
		apiClient = api.New(cfg.API.BaseURL, cfg.API.Token, config.GetDuration(cfg.API.Timeout), log)
		d.principals = apiClient
	}

	// --- Customer source ---
	switch cfg.Customers.Source {
	case config.SourcePostgres:
		err := retryWithBackoff(func() error {
			var err error
			if d.postgres == nil {
				if d.postgres, err = database.NewPostgres(cfg.Database.Postgres); err != nil {
					return err
				}
			}
			return d.postgres.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			d.Close()
			return nil, err
		}
		src, err := customers.NewPostgresSource(d.postgres.DB, cfg.Customers.Table, log)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.source = src
		log.Info("PostgreSQL connected successfully", nil)

	case config.SourceElasticsearch:
		err := retryWithBackoff(func() error {
			var err error
			if d.es == nil {
				if d.es, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil); err != nil {
					return err
				}
			}
			return d.es.Ping(ctx)
		}, 15, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			d.Close()
			return nil, err
		}
		d.source = customers.NewElasticsearchSource(d.es.Client, cfg.Customers.Index, 0, log)
		log.Info("Elasticsearch connected successfully", nil)

	default:
		if apiClient == nil {
			return nil, fmt.Errorf("api customer source requires api.base_url")
		}
		d.source = apiClient
	}

	// --- Optional cache ---
	if cfg.Customers.CacheTTL > 0 {
		d.redis = database.NewRedis(cfg.Database.Redis)
		err := retryWithBackoff(func() error {
			return d.redis.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			d.Close()
			return nil, err
		}
		ttl := time.Duration(cfg.Customers.CacheTTL) * time.Second
		d.source = customers.NewCachedSource(d.source, d.redis.Client, ttl, log)
		log.Info("Redis customer cache enabled", map[string]interface{}{"ttl": ttl.String()})
	}

	// --- Submitter ---
	switch cfg.Dispatch.Transport {
	case config.TransportSNS:
		snsClient, err := aws.NewSNSClient(ctx, cfg.AWS.Region)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.submitter = aws.NewSNSPushSubmitter(snsClient, 0, log)
	default:
		if apiClient == nil {
			d.Close()
			return nil, fmt.Errorf("api transport requires api.base_url")
		}
		d.submitter = apiClient
	}

	return d, nil
}

// readinessChecks returns a ping per connected backing store.
func (d *dependencies) readinessChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if d.postgres != nil {
		checks["postgres"] = d.postgres.Ping
	}
	if d.es != nil {
		checks["elasticsearch"] = d.es.Ping
	}
	if d.redis != nil {
		checks["redis"] = d.redis.Ping
	}
	return checks
}

func (d *dependencies) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.postgres != nil {
		_ = d.postgres.Close()
	}
}
