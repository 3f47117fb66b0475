package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Store      StoreConfig      `mapstructure:"store"`
	Server     ServerConfig     `mapstructure:"server"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Log        LogConfig        `mapstructure:"log"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

type EmbeddingConfig struct {
	Provider      string `mapstructure:"provider"` // "remote", "local"
	Model         string `mapstructure:"model"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Dimensions    int    `mapstructure:"dimensions"`
	AllowFallback bool   `mapstructure:"allow_fallback"`
}

type StoreConfig struct {
	Driver string       `mapstructure:"driver"` // "memory", "sqlite", "hybrid"
	SQLite SQLiteConfig `mapstructure:"sqlite"`
	Neo4j  Neo4jConfig  `mapstructure:"neo4j"`
	Qdrant QdrantConfig `mapstructure:"qdrant"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SimulationConfig struct {
	Enabled bool `mapstructure:"enabled"`
	DelayMs int  `mapstructure:"delay_ms"`
}

type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // "env", "file"
	Path     string `mapstructure:"path"`     // file provider only
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Embedding.Provider == "remote" && c.Embedding.APIKey == "" {
		warnings = append(warnings, "embedding provider 'remote' is configured but api_key is empty")
	}
	if c.Embedding.Provider == "remote" && c.Embedding.BaseURL == "" {
		warnings = append(warnings, "embedding provider 'remote' is configured but base_url is empty")
	}
	if c.Simulation.DelayMs < 0 {
		warnings = append(warnings, fmt.Sprintf("simulation delay_ms %d is negative", c.Simulation.DelayMs))
	}

	switch c.Store.Driver {
	case "", "memory", "sqlite", "hybrid":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown store driver %q (expected memory, sqlite, or hybrid)", c.Store.Driver))
	}

	switch c.Secrets.Provider {
	case "", "env", "file":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown secrets provider %q (expected env or file)", c.Secrets.Provider))
	}
	if c.Secrets.Provider == "file" && c.Secrets.Path == "" {
		warnings = append(warnings, "secrets provider 'file' is configured but path is empty")
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ANCESTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("embedding.provider", "local")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite.path", "ancestry.db")
	v.SetDefault("store.qdrant.port", 6334)
	v.SetDefault("store.qdrant.collection", "decision_embeddings")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("temporal.task_queue", "ancestry-retrieval")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
