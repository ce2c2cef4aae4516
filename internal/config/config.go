// Package config layers vaultflow settings: compiled-in defaults, then the
// user's config file, then VAULTFLOW_* environment variables. Command-line
// flags override all of these at the call site.
package config

import (
	"time"
)

type Config struct {
	Vault    VaultConfig
	Engine   EngineConfig
	Executor ExecutorConfig
	Server   ServerConfig
	Log      LogConfig
}

type VaultConfig struct {
	Path string
}

type EngineConfig struct {
	Interval string
}

type ExecutorConfig struct {
	Interval       string
	RatePerHour    int
	HandlerTimeout string
	HandlersDir    string
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Vault: VaultConfig{
			Path: "vault",
		},
		Engine: EngineConfig{
			Interval: "30s",
		},
		Executor: ExecutorConfig{
			Interval:       "30s",
			RatePerHour:    10,
			HandlerTimeout: "120s",
			HandlersDir:    "handlers",
		},
		Server: ServerConfig{
			Port: 4000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file (a flat JSON object at
// $XDG_CONFIG_HOME/vaultflow/config.json) and applies VAULTFLOW_*
// environment overrides on top of the defaults.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// EngineInterval returns the engine poll interval, falling back to the
// default when the configured value does not parse.
func (c Config) EngineInterval() time.Duration {
	return parseDuration(c.Engine.Interval, 30*time.Second)
}

// ExecutorInterval returns the executor poll interval.
func (c Config) ExecutorInterval() time.Duration {
	return parseDuration(c.Executor.Interval, 30*time.Second)
}

// HandlerTimeout returns the per-handler subprocess deadline.
func (c Config) HandlerTimeout() time.Duration {
	return parseDuration(c.Executor.HandlerTimeout, 120*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
