// Package config provides centralized configuration for the careerpilot server.
// Values come from built-in defaults, then an optional YAML file named by
// CONFIG_FILE, then environment variables (optionally seeded from .env.local).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string `yaml:"port"`

	// DBPath is the path to the SQLite database file.
	DBPath string `yaml:"db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LLMProvider selects the provider variant: "openai", "anthropic" or "mock".
	LLMProvider string `yaml:"llm_provider"`

	// MockMode forces deterministic mock output for every request.
	MockMode bool `yaml:"mock_mode"`

	// OpenAIKey is the API key for the OpenAI-compatible service.
	OpenAIKey string `yaml:"openai_api_key"`

	// OpenAIBaseURL is the base URL of the OpenAI-compatible API.
	OpenAIBaseURL string `yaml:"openai_base_url"`

	DefaultModel  string   `yaml:"default_model"`
	AllowedModels []string `yaml:"allowed_models"`
	Temperature   float64  `yaml:"temperature"`
	MaxTokens     int      `yaml:"max_tokens"`

	// AITimeout bounds each provider attempt.
	AITimeout      time.Duration `yaml:"ai_timeout"`
	AIMaxRetries   int           `yaml:"ai_max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
	JSONMode       bool          `yaml:"json_mode"`

	// PromptMaxLength is the rune budget of a sanitized prompt.
	PromptMaxLength int `yaml:"prompt_max_length"`
	// PromptMinLength and PromptMaxInput bound what the provider client accepts.
	PromptMinLength int `yaml:"prompt_min_length"`
	PromptMaxInput  int `yaml:"prompt_max_input"`

	ScraperTimeout    time.Duration `yaml:"scraper_timeout"`
	ScraperMaxRetries int           `yaml:"scraper_max_retries"`
	BrowserTimeout    time.Duration `yaml:"browser_timeout"`
	BrowserHeadless   bool          `yaml:"browser_headless"`
	BrowserEnabled    bool          `yaml:"browser_enabled"`

	// MaxTextLength is the maximum number of runes to keep from extracted text.
	MaxTextLength int `yaml:"max_text_length"`

	// ResearchTTL is how long volatile company research stays fresh.
	ResearchTTL     time.Duration `yaml:"research_ttl"`
	CacheMaxEntries int           `yaml:"cache_max_entries"`
	CacheMaxBytes   int64         `yaml:"cache_max_bytes"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`

	// SweepInterval is how often expired research is purged.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string `yaml:"cors_origin"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:              "8080",
		DBPath:            "careerpilot.db",
		LogLevel:          "info",
		LLMProvider:       "openai",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		DefaultModel:      "gpt-4o-mini",
		AllowedModels:     []string{"gpt-4o-mini", "gpt-4o"},
		Temperature:       0.4,
		MaxTokens:         2000,
		AITimeout:         45 * time.Second,
		AIMaxRetries:      2,
		RetryBaseDelay:    time.Second,
		RetryMaxDelay:     10 * time.Second,
		JSONMode:          true,
		PromptMaxLength:   16000,
		PromptMinLength:   20,
		PromptMaxInput:    32000,
		ScraperTimeout:    15 * time.Second,
		ScraperMaxRetries: 2,
		BrowserTimeout:    45 * time.Second,
		BrowserHeadless:   true,
		BrowserEnabled:    true,
		MaxTextLength:     15000,
		ResearchTTL:       7 * 24 * time.Hour,
		CacheMaxEntries:   500,
		CacheMaxBytes:     32 << 20,
		CacheTTL:          6 * time.Hour,
		SweepInterval:     time.Hour,
		CORSOrigin:        "*",
	}
}

// Load reads .env.local (if present), applies the CONFIG_FILE overlay and
// then environment overrides.
func Load() (Config, error) {
	loadEnvFile(".env.local")

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LLMProvider = envOr("LLM_PROVIDER", cfg.LLMProvider)
	cfg.MockMode = envBool("AI_MOCK_MODE", cfg.MockMode)
	cfg.OpenAIKey = envOr("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.OpenAIBaseURL = envOr("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.DefaultModel = envOr("AI_DEFAULT_MODEL", cfg.DefaultModel)
	cfg.AllowedModels = envList("AI_ALLOWED_MODELS", cfg.AllowedModels)
	cfg.Temperature = envFloat("AI_TEMPERATURE", cfg.Temperature)
	cfg.MaxTokens = envInt("AI_MAX_TOKENS", cfg.MaxTokens)
	cfg.AITimeout = envDuration("AI_TIMEOUT", cfg.AITimeout)
	cfg.AIMaxRetries = envInt("AI_MAX_RETRIES", cfg.AIMaxRetries)
	cfg.RetryBaseDelay = envDuration("AI_RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	cfg.RetryMaxDelay = envDuration("AI_RETRY_MAX_DELAY", cfg.RetryMaxDelay)
	cfg.JSONMode = envBool("AI_JSON_MODE", cfg.JSONMode)
	cfg.PromptMaxLength = envInt("PROMPT_MAX_LENGTH", cfg.PromptMaxLength)
	cfg.PromptMinLength = envInt("PROMPT_MIN_LENGTH", cfg.PromptMinLength)
	cfg.PromptMaxInput = envInt("PROMPT_MAX_INPUT", cfg.PromptMaxInput)
	cfg.ScraperTimeout = envDuration("SCRAPER_TIMEOUT", cfg.ScraperTimeout)
	cfg.ScraperMaxRetries = envInt("SCRAPER_MAX_RETRIES", cfg.ScraperMaxRetries)
	cfg.BrowserTimeout = envDuration("BROWSER_TIMEOUT", cfg.BrowserTimeout)
	cfg.BrowserHeadless = envBool("BROWSER_HEADLESS", cfg.BrowserHeadless)
	cfg.BrowserEnabled = envBool("BROWSER_ENABLED", cfg.BrowserEnabled)
	cfg.MaxTextLength = envInt("MAX_TEXT_LENGTH", cfg.MaxTextLength)
	cfg.ResearchTTL = envDuration("RESEARCH_TTL", cfg.ResearchTTL)
	cfg.CacheMaxEntries = envInt("CACHE_MAX_ENTRIES", cfg.CacheMaxEntries)
	cfg.CacheMaxBytes = int64(envInt("CACHE_MAX_BYTES", int(cfg.CacheMaxBytes)))
	cfg.CacheTTL = envDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.SweepInterval = envDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.CORSOrigin = envOr("CORS_ORIGIN", cfg.CORSOrigin)
	return cfg, nil
}

// UseMock reports whether the mock provider should serve every request:
// mock mode is on, the mock provider is selected, or the OpenAI provider
// has no key.
func (c Config) UseMock() bool {
	if c.MockMode {
		return true
	}
	switch strings.ToLower(c.LLMProvider) {
	case "mock":
		return true
	case "anthropic":
		return false
	default:
		return c.OpenAIKey == ""
	}
}

// applyFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadEnvFile sets variables from a KEY=VALUE file. Variables already in
// the environment win. A missing file is ignored.
func loadEnvFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		val = strings.TrimSpace(val)
		if len(val) >= 2 && (val[0] == '"' || val[0] == '\'') && val[len(val)-1] == val[0] {
			val = val[1 : len(val)-1]
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// envList splits a comma-separated value, dropping empty entries.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
