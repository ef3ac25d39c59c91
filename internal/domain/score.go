package domain

import "time"

// SchemaVersion of the RiskScore wire format. Bump on any breaking change to
// field meaning or category vocabulary.
const SchemaVersion = 1

// Category is the scan verdict label, ordered from best to worst
type Category string

const (
	CategorySafe       Category = "SAFE"
	CategoryCaution    Category = "CAUTION"
	CategoryHighRisk   Category = "HIGH_RISK"
	CategoryLikelyScam Category = "LIKELY_SCAM"
	CategoryUnscorable Category = "UNSCORABLE"
)

// severity ranks categories; higher is worse. UNSCORABLE sits outside the
// ladder and never participates in override composition.
func (c Category) severity() int {
	switch c {
	case CategorySafe:
		return 0
	case CategoryCaution:
		return 1
	case CategoryHighRisk:
		return 2
	case CategoryLikelyScam:
		return 3
	}
	return -1
}

// Worst returns the more severe of two categories
func Worst(a, b Category) Category {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// MetricResult is one analyzer's output. Score convention: higher is safer.
type MetricResult struct {
	Name        string     `json:"name"`
	RawValue    float64    `json:"rawValue"`
	Score       int        `json:"score"`
	Weight      float64    `json:"weight"`
	Confidence  Confidence `json:"confidence"`
	Explanation string     `json:"explanation"`
}

// Override is a critical flag forcing a category ceiling regardless of the
// weighted score
type Override struct {
	Kind              string   `json:"kind"`
	TriggeringMetrics []string `json:"triggeringMetrics"`
	ForcedCategory    Category `json:"forcedCategory"`
}

// RiskScore is the persisted scan outcome and the service's wire schema.
// FinalScore is nil when the category is UNSCORABLE.
type RiskScore struct {
	SchemaVersion int            `json:"schemaVersion"`
	RequestID     string         `json:"requestId"`
	Chain         Chain          `json:"chain"`
	TokenAddress  string         `json:"tokenAddress"`
	FinalScore    *int           `json:"finalScore,omitempty"`
	Category      Category       `json:"category"`
	Metrics       []MetricResult `json:"metrics"`
	Overrides     []Override     `json:"overrides"`
	EvaluatedAt   time.Time      `json:"evaluatedAt"`
}
