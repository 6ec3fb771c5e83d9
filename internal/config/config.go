package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full process configuration, loaded from environment
// variables with an optional YAML overlay for the tuning knobs that
// change more often than deployments do.
type Config struct {
	APIPort  string
	LogLevel string

	SearxngURL   string
	ExaAPIKey    string
	TavilyAPIKey string

	DefaultNumResults    int
	SearchTimeoutSeconds int

	FreeTierThreshold     float64
	SemanticTierThreshold float64
	ExtractTopK           int

	ContextTokenBudget int
	Tokenizer          string

	MaxConcurrentRequests int
	RequestsPerSecond     float64
	BurstSize             int

	PostgresDSN string
	NATSURL     string
	NATSSubject string

	AuthorityDomains []string
	ComplexKeywords  []string
}

// Load reads the environment, then applies the YAML overlay named by
// CONFIG_FILE when set. The free tier is the floor of the ladder, so
// SEARXNG_URL always resolves to something, defaulting to a local
// instance.
func Load() (*Config, error) {
	cfg := &Config{
		APIPort:  envOr("API_PORT", "8080"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		SearxngURL:   envOr("SEARXNG_URL", "http://localhost:8888"),
		ExaAPIKey:    strings.TrimSpace(os.Getenv("EXA_API_KEY")),
		TavilyAPIKey: strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),

		PostgresDSN: strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		NATSURL:     strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubject: envOr("NATS_SUBJECT", "search.completed"),

		Tokenizer: envOr("TOKENIZER", "heuristic"),
	}

	var err error
	if cfg.DefaultNumResults, err = envIntOr("DEFAULT_NUM_RESULTS", 10); err != nil {
		return nil, err
	}
	if cfg.SearchTimeoutSeconds, err = envIntOr("SEARCH_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.FreeTierThreshold, err = envFloatOr("FREE_TIER_THRESHOLD", 0.85); err != nil {
		return nil, err
	}
	if cfg.SemanticTierThreshold, err = envFloatOr("SEMANTIC_TIER_THRESHOLD", 0.85); err != nil {
		return nil, err
	}
	if cfg.ExtractTopK, err = envIntOr("EXTRACT_TOP_K", 3); err != nil {
		return nil, err
	}
	if cfg.ContextTokenBudget, err = envIntOr("CONTEXT_TOKEN_BUDGET", 4000); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentRequests, err = envIntOr("MAX_CONCURRENT_REQUESTS", 8); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = envFloatOr("REQUESTS_PER_SECOND", 10); err != nil {
		return nil, err
	}
	if cfg.BurstSize, err = envIntOr("BURST_SIZE", 10); err != nil {
		return nil, err
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fileOverlay holds the tunables an operator adjusts without touching
// the deployment environment. Pointer fields distinguish "absent" from
// zero values.
type fileOverlay struct {
	FreeTierThreshold     *float64 `yaml:"free_tier_threshold"`
	SemanticTierThreshold *float64 `yaml:"semantic_tier_threshold"`
	ExtractTopK           *int     `yaml:"extract_top_k"`
	ContextTokenBudget    *int     `yaml:"context_token_budget"`
	AuthorityDomains      []string `yaml:"authority_domains"`
	ComplexKeywords       []string `yaml:"complex_keywords"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if overlay.FreeTierThreshold != nil {
		c.FreeTierThreshold = *overlay.FreeTierThreshold
	}
	if overlay.SemanticTierThreshold != nil {
		c.SemanticTierThreshold = *overlay.SemanticTierThreshold
	}
	if overlay.ExtractTopK != nil {
		c.ExtractTopK = *overlay.ExtractTopK
	}
	if overlay.ContextTokenBudget != nil {
		c.ContextTokenBudget = *overlay.ContextTokenBudget
	}
	if len(overlay.AuthorityDomains) > 0 {
		c.AuthorityDomains = overlay.AuthorityDomains
	}
	if len(overlay.ComplexKeywords) > 0 {
		c.ComplexKeywords = overlay.ComplexKeywords
	}
	return nil
}

func (c *Config) validate() error {
	if c.FreeTierThreshold < 0 || c.FreeTierThreshold > 1 {
		return fmt.Errorf("config: FREE_TIER_THRESHOLD must be in [0,1], got %g", c.FreeTierThreshold)
	}
	if c.SemanticTierThreshold < 0 || c.SemanticTierThreshold > 1 {
		return fmt.Errorf("config: SEMANTIC_TIER_THRESHOLD must be in [0,1], got %g", c.SemanticTierThreshold)
	}
	if c.ExtractTopK <= 0 {
		return fmt.Errorf("config: EXTRACT_TOP_K must be positive, got %d", c.ExtractTopK)
	}
	if c.ContextTokenBudget <= 0 {
		return fmt.Errorf("config: CONTEXT_TOKEN_BUDGET must be positive, got %d", c.ContextTokenBudget)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("config: MAX_CONCURRENT_REQUESTS must be positive, got %d", c.MaxConcurrentRequests)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("config: REQUESTS_PER_SECOND must be positive, got %g", c.RequestsPerSecond)
	}
	switch c.Tokenizer {
	case "heuristic", "tiktoken":
	default:
		return fmt.Errorf("config: TOKENIZER must be heuristic or tiktoken, got %q", c.Tokenizer)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func envFloatOr(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number, got %q", key, v)
	}
	return f, nil
}
