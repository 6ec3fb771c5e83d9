package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SEARXNG_URL", "http://searxng.test:8888")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SEARXNG_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != "8080" {
		t.Fatalf("APIPort = %q", cfg.APIPort)
	}
	if cfg.SearxngURL != "http://localhost:8888" {
		t.Fatalf("SearxngURL = %q, want local default", cfg.SearxngURL)
	}
	if cfg.DefaultNumResults != 10 || cfg.SearchTimeoutSeconds != 10 {
		t.Fatalf("search defaults: %+v", cfg)
	}
	if cfg.FreeTierThreshold != 0.85 || cfg.SemanticTierThreshold != 0.85 {
		t.Fatalf("threshold defaults: %+v", cfg)
	}
	if cfg.ExtractTopK != 3 || cfg.ContextTokenBudget != 4000 {
		t.Fatalf("pruning defaults: %+v", cfg)
	}
	if cfg.MaxConcurrentRequests != 8 || cfg.RequestsPerSecond != 10 || cfg.BurstSize != 10 {
		t.Fatalf("admission defaults: %+v", cfg)
	}
	if cfg.Tokenizer != "heuristic" {
		t.Fatalf("Tokenizer = %q", cfg.Tokenizer)
	}
	if cfg.NATSSubject != "search.completed" {
		t.Fatalf("NATSSubject = %q", cfg.NATSSubject)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-numeric int", key: "EXTRACT_TOP_K", value: "three"},
		{name: "non-numeric float", key: "FREE_TIER_THRESHOLD", value: "high"},
		{name: "threshold out of range", key: "FREE_TIER_THRESHOLD", value: "1.5"},
		{name: "negative budget", key: "CONTEXT_TOKEN_BUDGET", value: "-1"},
		{name: "unknown tokenizer", key: "TOKENIZER", value: "wordpiece"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadAppliesFileOverlay(t *testing.T) {
	setRequiredEnv(t)

	overlay := `
free_tier_threshold: 0.7
context_token_budget: 2000
authority_domains:
  - internal.example.org
complex_keywords:
  - investigate
`
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FreeTierThreshold != 0.7 {
		t.Fatalf("FreeTierThreshold = %v, want overlay value", cfg.FreeTierThreshold)
	}
	if cfg.ContextTokenBudget != 2000 {
		t.Fatalf("ContextTokenBudget = %v", cfg.ContextTokenBudget)
	}
	// Untouched knobs keep their env defaults.
	if cfg.SemanticTierThreshold != 0.85 {
		t.Fatalf("SemanticTierThreshold = %v", cfg.SemanticTierThreshold)
	}
	if len(cfg.AuthorityDomains) != 1 || cfg.AuthorityDomains[0] != "internal.example.org" {
		t.Fatalf("AuthorityDomains = %v", cfg.AuthorityDomains)
	}
	if len(cfg.ComplexKeywords) != 1 || cfg.ComplexKeywords[0] != "investigate" {
		t.Fatalf("ComplexKeywords = %v", cfg.ComplexKeywords)
	}
}

func TestLoadRejectsMissingOverlayFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for a missing overlay file")
	}
}
