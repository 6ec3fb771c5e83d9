package domain

// Tier is one stage of the retrieval escalation ladder, ordered by cost.
// Escalation only moves forward.
type Tier int

const (
	TierFree Tier = iota
	TierSemantic
	TierDeepExtract
)

func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierSemantic:
		return "semantic"
	case TierDeepExtract:
		return "deep_extract"
	default:
		return "unknown"
	}
}

// ParseTier is the inverse of Tier.String, used when rehydrating
// persisted outcomes.
func ParseTier(s string) (Tier, bool) {
	switch s {
	case "free":
		return TierFree, true
	case "semantic":
		return TierSemantic, true
	case "deep_extract":
		return TierDeepExtract, true
	default:
		return TierFree, false
	}
}

// SearchHit is one backend result. Snippet and Content are optional;
// Engine identifies the underlying provider that produced the hit.
type SearchHit struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet,omitempty"`
	Content string  `json:"content,omitempty"`
	Engine  string  `json:"engine"`
	Tier    Tier    `json:"tier"`
	Score   float64 `json:"score,omitempty"`
}

// ConfidenceScore is the quality estimate for one tier attempt.
// Derived per attempt, never persisted across tiers.
type ConfidenceScore struct {
	Value float64 `json:"value"`
	Tier  Tier    `json:"tier"`
}
