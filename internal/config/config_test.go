package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAndValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lendguard.yaml")

	t.Setenv("LENDGUARD_TEST_API_KEY", "secret")

	data := `
policy_path: "./policies/governance.yaml"
store:
  driver: sqlite
  dsn: "file:decisions.db"
evaluator:
  provider: openai
  api_key: "${LENDGUARD_TEST_API_KEY}"
  timeout: 5s
  retries: 3
escalation:
  channel: queued
  slack_webhook_url: "https://hooks.example/x"
workflow:
  compliance_mode: enforce
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Evaluator.APIKey != "secret" {
		t.Fatalf("expected expanded api key")
	}
	if cfg.Evaluator.Timeout != 5*time.Second || cfg.Evaluator.Retries != 3 {
		t.Fatalf("unexpected evaluator config: %+v", cfg.Evaluator)
	}
	if cfg.Evaluator.Model != DefaultModel || cfg.Evaluator.BaseURL != DefaultBaseURL {
		t.Fatalf("expected evaluator defaults, got %+v", cfg.Evaluator)
	}
	if cfg.Workflow.ComplianceMode != "enforce" {
		t.Fatalf("unexpected compliance mode: %s", cfg.Workflow.ComplianceMode)
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Store.Driver != "jsonfile" || cfg.Store.Path != DefaultStorePath {
		t.Fatalf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Escalation.Channel != "console" || cfg.Workflow.ComplianceMode != "audit_only" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateMissingFields(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateSQLRequiresDSN(t *testing.T) {
	cfg := Default()
	cfg.Store = StoreConfig{Driver: "sqlite"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateQueuedRequiresOutboxStore(t *testing.T) {
	cfg := Default()
	cfg.Escalation.Channel = "queued"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error")
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Store.Driver = "mongo" },
		func(c *Config) { c.Evaluator.Provider = "bard" },
		func(c *Config) { c.Escalation.Channel = "email" },
		func(c *Config) { c.Workflow.ComplianceMode = "strict" },
		func(c *Config) { c.Evaluator.Retries = -1 },
		func(c *Config) { c.Evaluator.CacheTTL = time.Minute },
	}
	for i, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatalf("expected error")
	}
}
