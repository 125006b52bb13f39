package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for querypilot-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL application store)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (progress pub/sub)
	Redis RedisConfig `yaml:"redis"`

	// LLM provider endpoints
	LLM LLMConfig `yaml:"llm"`

	// Workflow configuration
	Workflow WorkflowConfig `yaml:"workflow"`

	// Export configuration (spreadsheet upload)
	Export ExportConfig `yaml:"export"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"querypilot"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"querypilot_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// URL builds a connection string for pgx from the individual fields.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis configuration for the progress channel.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// LLMConfig holds provider endpoints and model selection.
// The default provider serves requests without a per-request override.
type LLMConfig struct {
	DefaultProvider string `yaml:"default_provider" env:"LLM_DEFAULT_PROVIDER" env-default:"openai"`

	OpenAIBaseURL string `yaml:"openai_base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	OpenAIModel   string `yaml:"openai_model" env:"OPENAI_MODEL" env-default:"gpt-4o"`
	OpenAIAPIKey  string `yaml:"-" env:"OPENAI_API_KEY"` // Secret - not in YAML

	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-sonnet-4-20250514"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML

	// Embeddings always go through the OpenAI-compatible endpoint.
	EmbeddingModel string `yaml:"embedding_model" env:"EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
}

// WorkflowConfig holds workflow engine settings.
type WorkflowConfig struct {
	// CheckpointingEnabled controls whether graph state is persisted per thread.
	// When disabled the workflow still executes, without resumability.
	CheckpointingEnabled bool `yaml:"checkpointing_enabled" env:"WORKFLOW_CHECKPOINTING_ENABLED" env-default:"true"`
	// MaxToolIterations bounds the SQL agent tool-use loop.
	MaxToolIterations int `yaml:"max_tool_iterations" env:"WORKFLOW_MAX_TOOL_ITERATIONS" env-default:"10"`
}

// ExportConfig holds S3 settings for spreadsheet export.
type ExportConfig struct {
	S3Bucket        string `yaml:"s3_bucket" env:"EXPORT_S3_BUCKET" env-default:""`
	S3Region        string `yaml:"s3_region" env:"EXPORT_S3_REGION" env-default:"us-east-1"`
	S3Endpoint      string `yaml:"s3_endpoint" env:"EXPORT_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `yaml:"-" env:"EXPORT_S3_ACCESS_KEY_ID"`     // Secret - not in YAML
	SecretAccessKey string `yaml:"-" env:"EXPORT_S3_SECRET_ACCESS_KEY"` // Secret - not in YAML
}

// IsConfigured returns true if export upload is configured.
func (c *ExportConfig) IsConfigured() bool {
	return c.S3Bucket != ""
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// If config.yaml does not exist, configuration comes from the environment alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.DefaultProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid llm default_provider %q (expected openai or anthropic)", c.LLM.DefaultProvider)
	}
	if c.Workflow.MaxToolIterations <= 0 {
		return fmt.Errorf("workflow max_tool_iterations must be positive")
	}
	return nil
}
