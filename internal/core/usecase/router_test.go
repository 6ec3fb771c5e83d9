package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

func TestClassifySimpleQuery(t *testing.T) {
	router := NewSemanticRouter(RouterConfig{})

	decision := router.Classify(domain.NewQuery("golang slices", 10))
	if decision.Complexity != domain.ComplexitySimple {
		t.Fatalf("complexity = %v, want simple", decision.Complexity)
	}
	if decision.StartTier != domain.TierFree {
		t.Fatalf("start tier = %v, want free", decision.StartTier)
	}
	if decision.ThresholdOffset != 0 {
		t.Fatalf("threshold offset = %v, want 0", decision.ThresholdOffset)
	}
}

func TestClassifyMediumQuery(t *testing.T) {
	router := NewSemanticRouter(RouterConfig{})

	tests := []struct {
		name string
		text string
	}{
		{name: "complex keyword", text: "explain goroutine scheduling"},
		{name: "long without keyword", text: strings.Repeat("golang scheduling internals ", 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := router.Classify(domain.NewQuery(tt.text, 10))
			if decision.Complexity != domain.ComplexityMedium {
				t.Fatalf("complexity = %v, want medium", decision.Complexity)
			}
			if decision.StartTier != domain.TierFree {
				t.Fatalf("start tier = %v, want free", decision.StartTier)
			}
			if decision.ThresholdOffset >= 0 {
				t.Fatalf("threshold offset = %v, want negative", decision.ThresholdOffset)
			}
		})
	}
}

func TestClassifyComplexQuery(t *testing.T) {
	router := NewSemanticRouter(RouterConfig{})

	tests := []struct {
		name string
		text string
	}{
		{name: "multiple questions", text: "what is a goroutine? how does the scheduler preempt it?"},
		{name: "many clauses", text: "goroutines, channels, and the scheduler, explained together"},
		{
			name: "keyword with long text",
			text: "compare the garbage collection strategies used by the runtime across recent releases and their impact on tail latency in services",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := router.Classify(domain.NewQuery(tt.text, 10))
			if decision.Complexity != domain.ComplexityComplex {
				t.Fatalf("complexity = %v, want complex", decision.Complexity)
			}
			if decision.StartTier != domain.TierSemantic {
				t.Fatalf("start tier = %v, want semantic", decision.StartTier)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	router := NewSemanticRouter(RouterConfig{})
	query := domain.NewQuery("explain how the scheduler handles blocked goroutines, and why", 10)

	first := router.Classify(query)
	for i := 0; i < 50; i++ {
		if got := router.Classify(query); got != first {
			t.Fatalf("classification changed between runs: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyModelHints(t *testing.T) {
	router := NewSemanticRouter(RouterConfig{})

	simple := router.Classify(domain.NewQuery("golang slices", 10))
	complexQ := router.Classify(domain.NewQuery("what is a mutex? why does contention hurt? how to avoid it?", 10))

	if simple.ModelHint == "" || complexQ.ModelHint == "" {
		t.Fatal("model hints must be populated")
	}
	if simple.ModelHint == complexQ.ModelHint {
		t.Fatalf("simple and complex queries share hint %q", simple.ModelHint)
	}
}
