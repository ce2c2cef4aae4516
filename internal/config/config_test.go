package config

import (
	"testing"
	"time"
)

// memBackend is an in-memory Backend for tests.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error { m.strings[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.ints[key] = val; return nil }
func (m *memBackend) Delete(key string) error          { return nil }

func emptyBackend() *memBackend {
	return &memBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Vault.Path != "vault" {
		t.Errorf("Vault.Path = %q, want %q", cfg.Vault.Path, "vault")
	}
	if cfg.Executor.RatePerHour != 10 {
		t.Errorf("Executor.RatePerHour = %d, want 10", cfg.Executor.RatePerHour)
	}
	if cfg.Executor.HandlersDir != "handlers" {
		t.Errorf("Executor.HandlersDir = %q", cfg.Executor.HandlersDir)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.EngineInterval() != 30*time.Second {
		t.Errorf("EngineInterval = %v, want 30s", cfg.EngineInterval())
	}
	if cfg.HandlerTimeout() != 120*time.Second {
		t.Errorf("HandlerTimeout = %v, want 120s", cfg.HandlerTimeout())
	}
}

func TestBackendValuesApplied(t *testing.T) {
	b := emptyBackend()
	b.strings["vault.path"] = "/srv/vault"
	b.strings["engine.interval"] = "5s"
	b.ints["executor.rate_per_hour"] = 3
	b.ints["server.port"] = 5000

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Vault.Path != "/srv/vault" {
		t.Errorf("Vault.Path = %q", cfg.Vault.Path)
	}
	if cfg.EngineInterval() != 5*time.Second {
		t.Errorf("EngineInterval = %v, want 5s", cfg.EngineInterval())
	}
	if cfg.Executor.RatePerHour != 3 {
		t.Errorf("Executor.RatePerHour = %d, want 3", cfg.Executor.RatePerHour)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := emptyBackend()
	b.strings["vault.path"] = "/srv/vault"
	b.ints["executor.rate_per_hour"] = 3

	t.Setenv("VAULTFLOW_VAULT_PATH", "/env/vault")
	t.Setenv("VAULTFLOW_EXECUTOR_RATE_PER_HOUR", "7")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Vault.Path != "/env/vault" {
		t.Errorf("Vault.Path = %q, want env value", cfg.Vault.Path)
	}
	if cfg.Executor.RatePerHour != 7 {
		t.Errorf("Executor.RatePerHour = %d, want 7", cfg.Executor.RatePerHour)
	}
}

func TestBadEnvIntegerKeepsDefault(t *testing.T) {
	t.Setenv("VAULTFLOW_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(emptyBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want default 4000", cfg.Server.Port)
	}
}

func TestBadDurationFallsBack(t *testing.T) {
	cfg := defaults()
	cfg.Engine.Interval = "soon"
	if cfg.EngineInterval() != 30*time.Second {
		t.Errorf("EngineInterval = %v, want fallback 30s", cfg.EngineInterval())
	}
	cfg.Executor.HandlerTimeout = "-5s"
	if cfg.HandlerTimeout() != 120*time.Second {
		t.Errorf("HandlerTimeout = %v, want fallback 120s", cfg.HandlerTimeout())
	}
}

func TestShowAllAndValidKeys(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)
	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d entries, ValidKeys %d", len(infos), len(ValidKeys()))
	}
	found := false
	for _, ki := range infos {
		if ki.Key == "executor.handlers_dir" {
			found = true
			if ki.EnvVar != "VAULTFLOW_EXECUTOR_HANDLERS_DIR" {
				t.Errorf("EnvVar = %q", ki.EnvVar)
			}
			if ki.Value != "handlers" {
				t.Errorf("Value = %q", ki.Value)
			}
		}
	}
	if !found {
		t.Error("executor.handlers_dir missing from ShowAll")
	}
}
