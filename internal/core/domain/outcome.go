package domain

import "time"

// Complexity classifies a query for routing purposes.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// RoutingDecision is the semantic router output: where the retrieval
// ladder starts and which consumer model the results are sized for.
// ThresholdOffset is added to every tier threshold (medium queries
// escalate earlier than the configured bar).
type RoutingDecision struct {
	Complexity      Complexity
	StartTier       Tier
	ModelHint       string
	ThresholdOffset float64
}

type OutcomeStatus string

const (
	OutcomeAccepted  OutcomeStatus = "accepted"
	OutcomeExhausted OutcomeStatus = "exhausted"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// TierAttempt is one entry of the escalation trail.
type TierAttempt struct {
	Tier       Tier          `json:"tier"`
	Confidence float64       `json:"confidence"`
	HitCount   int           `json:"hit_count"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// RetrievalOutcome is the terminal result of one retrieval session.
type RetrievalOutcome struct {
	ID         string        `json:"id"`
	Query      string        `json:"query"`
	Status     OutcomeStatus `json:"status"`
	Tier       Tier          `json:"tier"`
	Confidence float64       `json:"confidence"`
	Complexity Complexity    `json:"complexity"`
	ModelHint  string        `json:"model_hint,omitempty"`
	Hits       []SearchHit   `json:"hits"`
	Trail      []TierAttempt `json:"trail"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}
