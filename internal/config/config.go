// Package config loads service configuration from an optional YAML file,
// layered under environment variables. Later layers win: defaults, then the
// file, then the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully resolved runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	HN      HNConfig      `yaml:"hackernews"`
	LLM     LLMConfig     `yaml:"llm"`
	Embed   EmbedConfig   `yaml:"embed"`
	Cache   CacheConfig   `yaml:"cache"`
	DBPath  string        `yaml:"db_path"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	CORSOrigin  string `yaml:"cors_origin"`
	ReadTimeout int    `yaml:"read_timeout_seconds"`
}

type HNConfig struct {
	BaseURL      string `yaml:"base_url"`
	MaxStories   int    `yaml:"max_stories"`
	WindowMonths int    `yaml:"window_months"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Concurrency int     `yaml:"concurrency"`
}

type EmbedConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Batch    int    `yaml:"batch"`
}

type CacheConfig struct {
	Embeddings int `yaml:"embeddings"`
	Clusters   int `yaml:"clusters"`
	Concepts   int `yaml:"concepts"`
	Summaries  int `yaml:"summaries"`
}

// Default returns the built-in configuration used when no file or
// environment overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigin:  "*",
			ReadTimeout: 60,
		},
		HN: HNConfig{
			BaseURL:      "https://hn.algolia.com/api/v1",
			MaxStories:   100,
			WindowMonths: 6,
		},
		LLM: LLMConfig{
			Provider:    "openrouter",
			Model:       "openai/gpt-4o-mini",
			BaseURL:     "https://openrouter.ai/api/v1",
			Temperature: 0.3,
			MaxTokens:   2000,
			Concurrency: 8,
		},
		Embed: EmbedConfig{
			Endpoint: "https://api.openai.com/v1/embeddings",
			Model:    "text-embedding-3-small",
			Batch:    64,
		},
		Cache: CacheConfig{
			Embeddings: 64,
			Clusters:   64,
			Concepts:   256,
			Summaries:  256,
		},
		DBPath:  ":memory:",
		Timeout: 120 * time.Second,
	}
}

// Load resolves configuration from path (may be empty or missing) and the
// process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("reading %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	applyEnv(&cfg.Server.Addr, "HNCT_ADDR")
	applyEnv(&cfg.Server.CORSOrigin, "HNCT_CORS_ORIGIN")
	applyEnv(&cfg.HN.BaseURL, "HNCT_HN_BASE_URL")
	applyEnvInt(&cfg.HN.MaxStories, "HNCT_HN_MAX_STORIES")
	applyEnvInt(&cfg.HN.WindowMonths, "HNCT_HN_WINDOW_MONTHS")
	applyEnv(&cfg.LLM.Provider, "HNCT_LLM_PROVIDER")
	applyEnv(&cfg.LLM.Model, "HNCT_LLM_MODEL")
	applyEnv(&cfg.LLM.BaseURL, "HNCT_LLM_BASE_URL")
	applyEnvInt(&cfg.LLM.Concurrency, "HNCT_LLM_CONCURRENCY")
	applyEnv(&cfg.Embed.Endpoint, "HNCT_EMBED_ENDPOINT")
	applyEnv(&cfg.Embed.Model, "HNCT_EMBED_MODEL")
	applyEnv(&cfg.DBPath, "HNCT_DB_PATH")

	applyEnv(&cfg.LLM.APIKey, "HNCT_LLM_API_KEY")
	applyEnv(&cfg.Embed.APIKey, "HNCT_EMBED_API_KEY")
	// Conventional provider keys fill in when the explicit ones are unset.
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openrouter":
			applyEnv(&cfg.LLM.APIKey, "OPENROUTER_API_KEY")
		case "openai":
			applyEnv(&cfg.LLM.APIKey, "OPENAI_API_KEY")
		}
	}
	if cfg.Embed.APIKey == "" {
		applyEnv(&cfg.Embed.APIKey, "OPENAI_API_KEY")
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HN.MaxStories < 1 {
		return fmt.Errorf("hackernews.max_stories must be >= 1, got %d", c.HN.MaxStories)
	}
	if c.LLM.Concurrency < 1 {
		return fmt.Errorf("llm.concurrency must be >= 1, got %d", c.LLM.Concurrency)
	}
	if c.Embed.Batch < 1 {
		return fmt.Errorf("embed.batch must be >= 1, got %d", c.Embed.Batch)
	}
	return nil
}

func applyEnv(dst *string, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = v
	}
}

func applyEnvInt(dst *int, envKey string) {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}
