// Package engine turns fetched TokenFacts into a RiskScore. It is pure
// computation: no I/O, no clocks beyond the injected evaluation time.
package engine

import (
	"math"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// MinUsableMetrics is the floor below which a scan is UNSCORABLE
const MinUsableMetrics = 4

// Blacklist answers how many recorded rug incidents a creator address has.
// Loaded and refreshed outside the engine; read-only here.
type Blacklist interface {
	Incidents(chain domain.Chain, creator string) int
}

// Engine evaluates token facts against the chain-parameterized metric set
type Engine struct {
	blacklist Blacklist
	now       func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithClock injects the evaluation clock, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine. blacklist may be nil (no creator history data).
func New(blacklist Blacklist, opts ...Option) *Engine {
	e := &Engine{blacklist: blacklist, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate runs every analyzer, aggregates the weighted score, applies
// critical overrides and classifies. Running twice on identical facts yields
// identical results modulo EvaluatedAt.
func (e *Engine) Evaluate(facts *domain.TokenFacts) *domain.RiskScore {
	now := e.now().UTC()

	var metrics []domain.MetricResult
	for _, analyze := range analyzersFor(facts.Chain, e.blacklist) {
		if result := analyze(facts, now); result != nil {
			metrics = append(metrics, *result)
		}
	}

	result := &domain.RiskScore{
		SchemaVersion: domain.SchemaVersion,
		Chain:         facts.Chain,
		TokenAddress:  facts.Address,
		Metrics:       metrics,
		Overrides:     []domain.Override{},
		EvaluatedAt:   now,
	}

	score, usable := aggregate(metrics)
	if usable < MinUsableMetrics {
		result.Category = domain.CategoryUnscorable
		return result
	}
	result.FinalScore = &score

	category := classify(score)
	for _, override := range e.detectOverrides(facts) {
		result.Overrides = append(result.Overrides, override)
		// Ceilings only ever lower the category
		category = domain.Worst(category, override.ForcedCategory)
	}
	result.Category = category
	return result
}

// aggregate computes the weighted mean over non-MISSING metrics, rounding
// half to even. MISSING metrics contribute to neither side of the division.
func aggregate(metrics []domain.MetricResult) (score, usable int) {
	var weightSum, weighted float64
	for _, m := range metrics {
		if m.Confidence == domain.ConfidenceMissing {
			continue
		}
		usable++
		weightSum += m.Weight
		weighted += float64(m.Score) * m.Weight
	}
	if weightSum == 0 {
		return 0, usable
	}
	return int(math.RoundToEven(weighted / weightSum)), usable
}

// classify maps the effective score to a category before overrides
func classify(score int) domain.Category {
	switch {
	case score >= 80:
		return domain.CategorySafe
	case score >= 60:
		return domain.CategoryCaution
	case score >= 30:
		return domain.CategoryHighRisk
	}
	return domain.CategoryLikelyScam
}
