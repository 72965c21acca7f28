package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"dbPath"`
	APIKey string `yaml:"apiKey"`

	// Providers
	OpenAIAPIKey    string `yaml:"openaiApiKey"`
	AnthropicAPIKey string `yaml:"anthropicApiKey"`
	EmbeddingModel  string `yaml:"embeddingModel"`
	EmbeddingDim    int    `yaml:"embeddingDim"`
	ChatModel       string `yaml:"chatModel"`

	// Remote vector index
	PineconeAPIKey     string `yaml:"pineconeApiKey"`
	PineconeControlURL string `yaml:"pineconeControlUrl"`

	// Embedding cache
	CacheMaxEntries int64 `yaml:"cacheMaxEntries"`

	LogLevel string `yaml:"logLevel"`
}

// Load reads configuration from the environment, then overlays any values
// set in the optional YAML file named by RECALL_CONFIG.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               envInt("PORT", 8742),
		DBPath:             envStr("RECALL_DB_PATH", "/data/recall.db"),
		APIKey:             envStr("RECALL_API_KEY", ""),
		OpenAIAPIKey:       envStr("OPENAI_API_KEY", ""),
		AnthropicAPIKey:    envStr("ANTHROPIC_API_KEY", ""),
		EmbeddingModel:     envStr("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:       envInt("EMBEDDING_DIM", 1536),
		ChatModel:          envStr("CHAT_MODEL", "gpt-4o-mini"),
		PineconeAPIKey:     envStr("PINECONE_API_KEY", ""),
		PineconeControlURL: envStr("PINECONE_CONTROL_URL", "https://api.pinecone.io"),
		CacheMaxEntries:    int64(envInt("CACHE_MAX_ENTRIES", 10000)),
		LogLevel:           envStr("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("RECALL_CONFIG"); path != "" {
		if err := overlayFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("RECALL_DB_PATH must not be empty")
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("EMBEDDING_DIM must be positive, got %d", c.EmbeddingDim)
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.CacheMaxEntries)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
