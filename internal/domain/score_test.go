package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScore_WireRoundTrip(t *testing.T) {
	score := 87
	original := RiskScore{
		SchemaVersion: SchemaVersion,
		RequestID:     "req-123",
		Chain:         ChainSolana,
		TokenAddress:  "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		FinalScore:    &score,
		Category:      CategorySafe,
		Metrics: []MetricResult{
			{Name: "liquidity_depth", RawValue: 150000, Score: 100, Weight: 0.20, Confidence: ConfidenceHigh, Explanation: "deep liquidity"},
			{Name: "honeypot", RawValue: 0, Score: 100, Weight: 0.10, Confidence: ConfidenceHigh, Explanation: "sell simulation succeeded"},
		},
		Overrides:   []Override{},
		EvaluatedAt: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded RiskScore
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestRiskScore_UnscorableOmitsFinalScore(t *testing.T) {
	rs := RiskScore{
		SchemaVersion: SchemaVersion,
		RequestID:     "req-456",
		Chain:         ChainEthereum,
		TokenAddress:  "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
		Category:      CategoryUnscorable,
		EvaluatedAt:   time.Now().UTC(),
	}

	data, err := json.Marshal(rs)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "finalScore")
	assert.Contains(t, string(data), `"category":"UNSCORABLE"`)
	assert.Contains(t, string(data), `"schemaVersion":1`)
}
