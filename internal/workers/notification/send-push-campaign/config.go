package sendpushcampaign

import (
	"fmt"
	"time"

	"loyalty-admin/internal/common/config"
)

type Config struct {
	Enabled bool
	Timeout time.Duration
}

// createConfigFromAppConfig reads the worker section for TaskType.
func createConfigFromAppConfig(appConfig *config.Config) *Config {
	if appConfig == nil {
		return &Config{Enabled: true, Timeout: 60 * time.Second}
	}
	wcfg := config.GetWorkerConfig(appConfig, TaskType)
	return &Config{
		Enabled: wcfg.Enabled,
		Timeout: config.GetDuration(wcfg.Timeout),
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
