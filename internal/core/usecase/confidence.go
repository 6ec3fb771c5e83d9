package usecase

import (
	"strings"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

type ConfidenceConfig struct {
	ResultCountWeight     float64
	TitleRelevanceWeight  float64
	URLAuthorityWeight    float64
	ContentQualityWeight  float64
	SemanticDensityWeight float64
	AuthorityDomains      []string
}

func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		ResultCountWeight:     0.15,
		TitleRelevanceWeight:  0.30,
		URLAuthorityWeight:    0.20,
		ContentQualityWeight:  0.20,
		SemanticDensityWeight: 0.15,
		AuthorityDomains: []string{
			"github.com",
			"stackoverflow.com",
			"wikipedia.org",
			"arxiv.org",
			"docs.rs",
			"go.dev",
			"cve.mitre.org",
			"nvd.nist.gov",
		},
	}
}

// ConfidenceCalculator scores a tier's hit set for relevance and
// quality. The score is a weighted sum of five signals, clamped to
// [0,1]. An empty hit set scores exactly 0.0 and the calculator never
// fails on malformed input.
type ConfidenceCalculator struct {
	cfg ConfidenceConfig
}

func NewConfidenceCalculator(cfg ConfidenceConfig) *ConfidenceCalculator {
	def := DefaultConfidenceConfig()
	sum := cfg.ResultCountWeight + cfg.TitleRelevanceWeight + cfg.URLAuthorityWeight +
		cfg.ContentQualityWeight + cfg.SemanticDensityWeight
	if sum <= 0 {
		cfg.ResultCountWeight = def.ResultCountWeight
		cfg.TitleRelevanceWeight = def.TitleRelevanceWeight
		cfg.URLAuthorityWeight = def.URLAuthorityWeight
		cfg.ContentQualityWeight = def.ContentQualityWeight
		cfg.SemanticDensityWeight = def.SemanticDensityWeight
	}
	if len(cfg.AuthorityDomains) == 0 {
		cfg.AuthorityDomains = def.AuthorityDomains
	}
	return &ConfidenceCalculator{cfg: cfg}
}

func (c *ConfidenceCalculator) Score(query string, hits []domain.SearchHit) float64 {
	if len(hits) == 0 {
		return 0.0
	}

	total := c.scoreResultCount(len(hits))*c.cfg.ResultCountWeight +
		c.scoreTitleRelevance(query, hits)*c.cfg.TitleRelevanceWeight +
		c.scoreURLAuthority(hits)*c.cfg.URLAuthorityWeight +
		c.scoreContentQuality(hits)*c.cfg.ContentQualityWeight +
		c.scoreSemanticDensity(query, hits)*c.cfg.SemanticDensityWeight

	return clamp01(total)
}

func (c *ConfidenceCalculator) scoreResultCount(count int) float64 {
	switch {
	case count == 0:
		return 0.0
	case count <= 2:
		return 0.3
	case count <= 5:
		return 0.6
	case count <= 10:
		return 0.9
	default:
		return 1.0
	}
}

func (c *ConfidenceCalculator) scoreTitleRelevance(query string, hits []domain.SearchHit) float64 {
	words := queryWords(query)
	if len(words) == 0 {
		return 0.5
	}

	total := 0.0
	for _, hit := range hits {
		title := strings.ToLower(hit.Title)
		matches := 0
		for _, w := range words {
			if strings.Contains(title, w) {
				matches++
			}
		}
		total += float64(matches) / float64(len(words))
	}
	return min1(total / float64(len(hits)))
}

func (c *ConfidenceCalculator) scoreURLAuthority(hits []domain.SearchHit) float64 {
	authoritative := 0
	for _, hit := range hits {
		for _, dom := range c.cfg.AuthorityDomains {
			if strings.Contains(hit.URL, dom) {
				authoritative++
				break
			}
		}
	}
	return min1(float64(authoritative) / float64(len(hits)))
}

func (c *ConfidenceCalculator) scoreContentQuality(hits []domain.SearchHit) float64 {
	total := 0.0
	for _, hit := range hits {
		score := 0.0
		if hit.Snippet != "" {
			score += 0.3
		}
		if hit.Content != "" {
			score += 0.3
			if len(hit.Content) > 500 {
				score += 0.2
			}
			if len(hit.Content) > 1000 {
				score += 0.2
			}
		}
		total += score
	}
	return min1(total / float64(len(hits)))
}

// scoreSemanticDensity rewards hits whose title+snippet text is both
// relevant to the query and lexically diverse.
func (c *ConfidenceCalculator) scoreSemanticDensity(query string, hits []domain.SearchHit) float64 {
	words := queryWords(query)
	if len(words) == 0 {
		return 0.5
	}

	total := 0.0
	for _, hit := range hits {
		text := strings.ToLower(hit.Title + " " + hit.Snippet)
		tokens := strings.Fields(text)
		if len(tokens) == 0 {
			continue
		}

		relevant := 0
		unique := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			unique[tok] = struct{}{}
			for _, w := range words {
				if strings.Contains(tok, w) {
					relevant++
					break
				}
			}
		}

		diversity := float64(len(unique)) / float64(len(tokens))
		total += float64(relevant) / float64(len(tokens)) * diversity
	}

	// Densities are small fractions; amplify before capping.
	return min1(total / float64(len(hits)) * 10.0)
}

func queryWords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 2 {
			words = append(words, f)
		}
	}
	return words
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
