package normalizepermissions

import (
	"time"

	"loyalty-admin/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func createConfigFromAppConfig(appConfig *config.Config) *Config {
	if appConfig == nil {
		return &Config{Timeout: 10 * time.Second}
	}
	wcfg := config.GetWorkerConfig(appConfig, TaskType)
	return &Config{Timeout: config.GetDuration(wcfg.Timeout)}
}
