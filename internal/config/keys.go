package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "vault.path", typ: kString, env: "VAULTFLOW_VAULT_PATH",
		apply:   func(cfg *Config, v any) { cfg.Vault.Path = v.(string) },
		extract: func(cfg Config) any { return cfg.Vault.Path },
	},
	{
		key: "engine.interval", typ: kString, env: "VAULTFLOW_ENGINE_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Engine.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Engine.Interval },
	},
	{
		key: "executor.interval", typ: kString, env: "VAULTFLOW_EXECUTOR_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Executor.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Executor.Interval },
	},
	{
		key: "executor.rate_per_hour", typ: kInt, env: "VAULTFLOW_EXECUTOR_RATE_PER_HOUR",
		apply:   func(cfg *Config, v any) { cfg.Executor.RatePerHour = v.(int) },
		extract: func(cfg Config) any { return cfg.Executor.RatePerHour },
	},
	{
		key: "executor.handler_timeout", typ: kString, env: "VAULTFLOW_EXECUTOR_HANDLER_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Executor.HandlerTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Executor.HandlerTimeout },
	},
	{
		key: "executor.handlers_dir", typ: kString, env: "VAULTFLOW_EXECUTOR_HANDLERS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Executor.HandlersDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Executor.HandlersDir },
	},
	{
		key: "server.port", typ: kInt, env: "VAULTFLOW_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "VAULTFLOW_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
