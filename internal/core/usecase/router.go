package usecase

import (
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

type RouterConfig struct {
	SimpleMaxLength       int
	ComplexMinLength      int
	ComplexKeywords       []string
	MediumThresholdOffset float64
	ModelHintSimple       string
	ModelHintMedium       string
	ModelHintComplex      string
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		SimpleMaxLength:       50,
		ComplexMinLength:      100,
		ComplexKeywords:       []string{"analyze", "analyse", "compare", "evaluate", "explain", "why", "how"},
		MediumThresholdOffset: -0.10,
		ModelHintSimple:       "light",
		ModelHintMedium:       "standard",
		ModelHintComplex:      "advanced",
	}
}

// SemanticRouter classifies query complexity and picks the starting
// tier. Classification is a pure function of the query text, so the
// same query always routes the same way.
type SemanticRouter struct {
	cfg RouterConfig
}

func NewSemanticRouter(cfg RouterConfig) *SemanticRouter {
	def := DefaultRouterConfig()
	if cfg.SimpleMaxLength <= 0 {
		cfg.SimpleMaxLength = def.SimpleMaxLength
	}
	if cfg.ComplexMinLength <= 0 {
		cfg.ComplexMinLength = def.ComplexMinLength
	}
	if len(cfg.ComplexKeywords) == 0 {
		cfg.ComplexKeywords = def.ComplexKeywords
	}
	if cfg.MediumThresholdOffset == 0 {
		cfg.MediumThresholdOffset = def.MediumThresholdOffset
	}
	if cfg.ModelHintSimple == "" {
		cfg.ModelHintSimple = def.ModelHintSimple
	}
	if cfg.ModelHintMedium == "" {
		cfg.ModelHintMedium = def.ModelHintMedium
	}
	if cfg.ModelHintComplex == "" {
		cfg.ModelHintComplex = def.ModelHintComplex
	}
	return &SemanticRouter{cfg: cfg}
}

func (r *SemanticRouter) Classify(query domain.Query) domain.RoutingDecision {
	complexity := r.classifyComplexity(query.Text)

	switch complexity {
	case domain.ComplexityComplex:
		return domain.RoutingDecision{
			Complexity: domain.ComplexityComplex,
			StartTier:  domain.TierSemantic,
			ModelHint:  r.cfg.ModelHintComplex,
		}
	case domain.ComplexityMedium:
		return domain.RoutingDecision{
			Complexity:      domain.ComplexityMedium,
			StartTier:       domain.TierFree,
			ModelHint:       r.cfg.ModelHintMedium,
			ThresholdOffset: r.cfg.MediumThresholdOffset,
		}
	default:
		return domain.RoutingDecision{
			Complexity: domain.ComplexitySimple,
			StartTier:  domain.TierFree,
			ModelHint:  r.cfg.ModelHintSimple,
		}
	}
}

func (r *SemanticRouter) classifyComplexity(text string) domain.Complexity {
	lower := strings.ToLower(text)
	length := utf8.RuneCountInString(text)

	hasComplexKeyword := false
	for _, kw := range r.cfg.ComplexKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			hasComplexKeyword = true
			break
		}
	}

	clauses := strings.Count(text, ",") + strings.Count(text, "，") + strings.Count(text, "、") + 1
	questions := strings.Count(text, "?") + strings.Count(text, "？")

	switch {
	case questions > 1 || clauses > 2 || (hasComplexKeyword && length > r.cfg.ComplexMinLength):
		return domain.ComplexityComplex
	case hasComplexKeyword || length > r.cfg.SimpleMaxLength:
		return domain.ComplexityMedium
	default:
		return domain.ComplexitySimple
	}
}
