package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel        = "granite3.1-dense:8b"
	DefaultBaseURL      = "http://localhost:11434/v1"
	DefaultStorePath    = "loan_decisions.json"
	DefaultPolicyPath   = "policies/governance.yaml"
	DefaultEvalTimeout  = 60 * time.Second
	DefaultPollInterval = 5 * time.Second
)

type Config struct {
	PolicyPath string           `yaml:"policy_path"`
	Store      StoreConfig      `yaml:"store"`
	Evaluator  EvaluatorConfig  `yaml:"evaluator"`
	Escalation EscalationConfig `yaml:"escalation"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // jsonfile | memory | sqlite | postgres
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type EvaluatorConfig struct {
	Provider  string        `yaml:"provider"` // openai | heuristic
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   int           `yaml:"retries"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	CacheSize int           `yaml:"cache_size"`
}

type EscalationConfig struct {
	Channel         string        `yaml:"channel"` // console | queued | none
	SlackWebhookURL string        `yaml:"slack_webhook_url"`
	PollInterval    time.Duration `yaml:"poll_interval"`
}

type WorkflowConfig struct {
	ComplianceMode string `yaml:"compliance_mode"` // audit_only | enforce
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func Load(path string) (Config, error) {
	// #nosec G304 -- path is operator-provided config path.
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	expanded := os.ExpandEnv(string(raw))
	expanded = strings.ReplaceAll(expanded, "\r\n", "\n")

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// ApplyDefaults fills zero-valued fields in place.
func (c *Config) ApplyDefaults() {
	if c.PolicyPath == "" {
		c.PolicyPath = DefaultPolicyPath
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "jsonfile"
	}
	if c.Store.Driver == "jsonfile" && c.Store.Path == "" {
		c.Store.Path = DefaultStorePath
	}
	if c.Evaluator.Provider == "" {
		c.Evaluator.Provider = "openai"
	}
	if c.Evaluator.Provider == "openai" && c.Evaluator.BaseURL == "" {
		c.Evaluator.BaseURL = DefaultBaseURL
	}
	if c.Evaluator.Model == "" {
		c.Evaluator.Model = DefaultModel
	}
	if c.Evaluator.Timeout == 0 {
		c.Evaluator.Timeout = DefaultEvalTimeout
	}
	if c.Evaluator.Retries == 0 {
		c.Evaluator.Retries = 1
	}
	if c.Escalation.Channel == "" {
		c.Escalation.Channel = "console"
	}
	if c.Escalation.PollInterval == 0 {
		c.Escalation.PollInterval = DefaultPollInterval
	}
	if c.Workflow.ComplianceMode == "" {
		c.Workflow.ComplianceMode = "audit_only"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c Config) Validate() error {
	if c.PolicyPath == "" {
		return errors.New("policy_path is required")
	}

	switch c.Store.Driver {
	case "jsonfile":
		if c.Store.Path == "" {
			return errors.New("store.path is required when store.driver=jsonfile")
		}
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return errors.Errorf("store.dsn is required when store.driver=%s", c.Store.Driver)
		}
	case "memory":
	default:
		return errors.Errorf("unsupported store.driver: %s", c.Store.Driver)
	}

	switch c.Evaluator.Provider {
	case "openai", "heuristic":
	default:
		return errors.Errorf("unsupported evaluator.provider: %s", c.Evaluator.Provider)
	}
	if c.Evaluator.Timeout < 0 {
		return errors.New("evaluator.timeout must not be negative")
	}
	if c.Evaluator.Retries < 1 {
		return errors.New("evaluator.retries must be at least 1")
	}
	if c.Evaluator.CacheTTL > 0 && c.Evaluator.CacheSize <= 0 {
		return errors.New("evaluator.cache_size is required when evaluator.cache_ttl is set")
	}

	switch c.Escalation.Channel {
	case "console", "none":
	case "queued":
		if c.Store.Driver == "jsonfile" {
			return errors.New("escalation.channel=queued requires a memory, sqlite or postgres store")
		}
	default:
		return errors.Errorf("unsupported escalation.channel: %s", c.Escalation.Channel)
	}

	switch c.Workflow.ComplianceMode {
	case "audit_only", "enforce":
	default:
		return errors.Errorf("unsupported workflow.compliance_mode: %s", c.Workflow.ComplianceMode)
	}

	return nil
}
