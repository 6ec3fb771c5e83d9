package usecase

import (
	"strings"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/core/ports"
)

type PrunerConfig struct {
	TokenBudget     int
	TitleSimilarity float64
}

func DefaultPrunerConfig() PrunerConfig {
	return PrunerConfig{
		TokenBudget:     4000,
		TitleSimilarity: 0.80,
	}
}

// minTailTokens is the smallest budget remainder worth filling with a
// truncated hit; anything less is dropped outright.
const minTailTokens = 25

// ContextPruner reduces an accepted hit set to a token budget:
// duplicates out first, then markup stripped from full content, then
// later hits truncated or dropped while earlier ones stay whole.
// Output is deterministic for identical input.
type ContextPruner struct {
	cfg     PrunerConfig
	counter ports.TokenCounter
	cleaner ports.ContentCleaner
}

func NewContextPruner(cfg PrunerConfig, counter ports.TokenCounter, cleaner ports.ContentCleaner) *ContextPruner {
	def := DefaultPrunerConfig()
	if cfg.TokenBudget <= 0 {
		cfg.TokenBudget = def.TokenBudget
	}
	if cfg.TitleSimilarity <= 0 || cfg.TitleSimilarity > 1 {
		cfg.TitleSimilarity = def.TitleSimilarity
	}
	if counter == nil {
		counter = charCounter{}
	}
	return &ContextPruner{cfg: cfg, counter: counter, cleaner: cleaner}
}

// Prune applies deduplication, cleaning, and budget truncation in that
// order. A non-positive budget falls back to the configured default.
func (p *ContextPruner) Prune(hits []domain.SearchHit, tokenBudget int) []domain.SearchHit {
	if len(hits) == 0 {
		return hits
	}
	if tokenBudget <= 0 {
		tokenBudget = p.cfg.TokenBudget
	}

	deduped := p.dedupe(hits)
	cleaned := p.clean(deduped)
	return p.truncateToBudget(cleaned, tokenBudget)
}

func (p *ContextPruner) dedupe(hits []domain.SearchHit) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(hits))
	seenURLs := make(map[string]struct{}, len(hits))
	keptTitles := make([]map[string]struct{}, 0, len(hits))

	for _, hit := range hits {
		if hit.URL != "" {
			if _, ok := seenURLs[hit.URL]; ok {
				continue
			}
		}

		titleTokens := toTokenSet(hit.Title)
		nearDuplicate := false
		for _, kept := range keptTitles {
			if tokenJaccard(titleTokens, kept) >= p.cfg.TitleSimilarity {
				nearDuplicate = true
				break
			}
		}
		if nearDuplicate {
			continue
		}

		if hit.URL != "" {
			seenURLs[hit.URL] = struct{}{}
		}
		keptTitles = append(keptTitles, titleTokens)
		out = append(out, hit)
	}
	return out
}

func (p *ContextPruner) clean(hits []domain.SearchHit) []domain.SearchHit {
	if p.cleaner == nil {
		return hits
	}
	out := make([]domain.SearchHit, len(hits))
	copy(out, hits)
	for i := range out {
		if out[i].Content != "" {
			out[i].Content = p.cleaner.Clean(out[i].Content)
		}
	}
	return out
}

func (p *ContextPruner) truncateToBudget(hits []domain.SearchHit, budget int) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(hits))
	used := 0

	for _, hit := range hits {
		cost := p.hitCost(hit)
		if used+cost <= budget {
			out = append(out, hit)
			used += cost
			continue
		}

		remaining := budget - used
		base := p.counter.Count(hit.Title) + p.counter.Count(hit.Snippet)
		if hit.Content != "" && remaining >= minTailTokens && base < remaining {
			hit.Content = p.truncateContent(hit.Content, remaining-base)
			if hit.Content != "" {
				out = append(out, hit)
			}
		}
		break
	}
	return out
}

func (p *ContextPruner) hitCost(hit domain.SearchHit) int {
	return p.counter.Count(hit.Title) + p.counter.Count(hit.Snippet) + p.counter.Count(hit.Content)
}

func (p *ContextPruner) truncateContent(content string, allowed int) string {
	if allowed <= 0 {
		return ""
	}

	// First cut on the 4-chars-per-token heuristic, then shrink until
	// the real counter agrees.
	runes := []rune(content)
	cut := allowed * 4
	if cut >= len(runes) {
		return content
	}
	truncated := string(runes[:cut])
	for p.counter.Count(truncated) > allowed && len(truncated) > 0 {
		r := []rune(truncated)
		truncated = string(r[:len(r)*9/10])
	}
	if truncated == "" {
		return ""
	}
	return truncated + "..."
}

func tokenJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toTokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok != "" {
			out[tok] = struct{}{}
		}
	}
	return out
}

// charCounter is the fallback token estimator: four characters per
// token, matching the budget heuristic used before a real tokenizer is
// wired in.
type charCounter struct{}

func (charCounter) Count(text string) int { return len(text) / 4 }
