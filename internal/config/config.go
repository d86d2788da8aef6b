package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url" validate:"required"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// LLMConfig configures one OpenAI-compatible provider endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
	Model   string `yaml:"model" validate:"required"`
}

// RAGConfig holds the chunking and retrieval parameters.
type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap  int    `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	TopK          int    `yaml:"top_k" validate:"gt=0"`
	VectorSize    int    `yaml:"vector_size" validate:"gt=0"`
	EncryptionKey string `yaml:"encryption_key"`
}

// ScoutConfig holds filing scout agent settings.
type ScoutConfig struct {
	UserAgent    string `yaml:"user_agent"`
	CronSchedule string `yaml:"cron_schedule"`
}

// WebhookConfig holds outbound notification settings.
type WebhookConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SlackURL   string `yaml:"slack_url"`
	DiscordURL string `yaml:"discord_url"`
	CustomURL  string `yaml:"custom_url"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

type Config struct {
	Server       ServerConfig   `yaml:"server"`
	Database     DatabaseConfig `yaml:"database"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	RAG          RAGConfig      `yaml:"rag"`
	Scout        ScoutConfig    `yaml:"scout"`
	Webhook      WebhookConfig  `yaml:"webhook"`
}

// LoadConfig reads a YAML config file, applies environment overrides for
// secrets, fills defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Secrets come from the environment when present so config files can be
// committed without keys.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.EmbedLLM.Key == "" {
			cfg.EmbedLLM.Key = v
		}
		if cfg.InferenceLLM.Key == "" {
			cfg.InferenceLLM.Key = v
		}
	}
	if v := os.Getenv("SEC_USER_AGENT"); v != "" {
		cfg.Scout.UserAgent = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Webhook.SlackURL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Webhook.DiscordURL = v
	}
	if v := os.Getenv("FILING_AGENT_WEBHOOK_URL"); v != "" {
		cfg.Webhook.CustomURL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8001"
	}
	if cfg.Server.AllowedOrigins == "" {
		cfg.Server.AllowedOrigins = "http://localhost:3000"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1500
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 200
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 5
	}
	if cfg.RAG.VectorSize == 0 {
		cfg.RAG.VectorSize = 1536
	}
	if cfg.Scout.UserAgent == "" {
		// SEC requires a contact address in the User-Agent.
		cfg.Scout.UserAgent = "FinSight Filing Scout (contact@example.com)"
	}
	if cfg.Scout.CronSchedule == "" {
		cfg.Scout.CronSchedule = "0 */6 * * *"
	}
}
