package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Redis        RedisConfig        `mapstructure:"redis"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Pinecone     PineconeConfig     `mapstructure:"pinecone"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address       string `mapstructure:"address"`
	RatePerMinute int    `mapstructure:"rate_per_minute"`
}

// RedisConfig contains connection settings for the conversation and cache store.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// OpenAIConfig contains the completion/embedding backend settings.
type OpenAIConfig struct {
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

func (o OpenAIConfig) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return fmt.Errorf("openai.api_key required")
	}
	return nil
}

// PineconeConfig contains the vector index settings.
type PineconeConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	IndexHost string        `mapstructure:"index_host"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

func (p PineconeConfig) Validate() error {
	if strings.TrimSpace(p.APIKey) == "" {
		return fmt.Errorf("pinecone.api_key required")
	}
	if strings.TrimSpace(p.IndexHost) == "" {
		return fmt.Errorf("pinecone.index_host required")
	}
	return nil
}

// ConversationConfig controls history retention.
type ConversationConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// CacheConfig controls response cache retention.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// TelemetryConfig contains tracing and metrics settings.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	MetricsPort  int    `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort < 0 {
		return fmt.Errorf("telemetry.metrics_port must be >= 0")
	}
	return nil
}

// LoadConfig loads config from file and environment (NYAYA_* overrides).
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("nyayagpt")
	v.SetConfigType("yaml")
	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("NYAYA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.rate_per_minute", 30)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.timeout", 5*time.Second)
	v.SetDefault("openai.embedding_model", "text-embedding-ada-002")
	v.SetDefault("pinecone.timeout", 10*time.Second)
	v.SetDefault("conversation.ttl", 7*24*time.Hour)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("telemetry.enabled", false)

	// Config file is optional; env and defaults cover everything.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
