package engine

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

type stubBlacklist map[string]int

func (s stubBlacklist) Incidents(chain domain.Chain, creator string) int {
	return s[string(chain)+":"+creator]
}

func fixedClock() time.Time { return testNow }

func healthySolanaFacts() *domain.TokenFacts {
	return &domain.TokenFacts{
		Chain:   domain.ChainSolana,
		Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		Identity: domain.IdentityFacts{
			Fact: highConf(), Symbol: "GOOD", Name: "Good Token", Decimals: 6,
		},
		Authorities: domain.AuthorityFacts{
			Fact: highConf(), MintRevoked: true, FreezeRevoked: true, OwnerRenounced: true,
		},
		Liquidity: domain.LiquidityFacts{
			Fact:      highConf(),
			USD:       decimal.NewFromInt(250_000),
			Volume24h: decimal.NewFromInt(500_000),
			PoolCount: 3,
		},
		LPLock:  domain.LPLockFacts{Fact: highConf(), LockedPct: 80, BurnedPct: 18},
		Holders: domain.HolderFacts{Fact: highConf(), Top10Pct: 15, HolderCount: 12_000},
		Simulation: domain.SimulationFacts{
			Fact: domain.Fact{Source: "derived", Conf: domain.ConfidenceMedium, FetchedAt: testNow},
		},
		Provenance: domain.ProvenanceFacts{
			Fact:       highConf(),
			DeployedAt: testNow.Add(-90 * 24 * time.Hour),
			Creator:    "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T",
		},
		Social: domain.SocialFacts{Fact: highConf(), Present: true},
	}
}

func TestEvaluate_HealthySolanaToken(t *testing.T) {
	e := New(stubBlacklist{}, WithClock(fixedClock))
	score := e.Evaluate(healthySolanaFacts())

	require.NotNil(t, score.FinalScore)
	assert.GreaterOrEqual(t, *score.FinalScore, 85)
	assert.Equal(t, domain.CategorySafe, score.Category)
	assert.Empty(t, score.Overrides)
	assert.Equal(t, domain.SchemaVersion, score.SchemaVersion)
	assert.Equal(t, testNow, score.EvaluatedAt)

	// Every Solana metric should have produced a non-MISSING result
	usable := 0
	for _, m := range score.Metrics {
		if m.Confidence != domain.ConfidenceMissing {
			usable++
		}
	}
	assert.Equal(t, len(solanaWeights), usable)
}

func TestEvaluate_EVMHoneypot(t *testing.T) {
	facts := &domain.TokenFacts{
		Chain:   domain.ChainEthereum,
		Address: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984",
		Authorities: domain.AuthorityFacts{
			Fact: highConf(), MintRevoked: true, OwnerRenounced: true,
		},
		Liquidity: domain.LiquidityFacts{
			Fact: highConf(), USD: decimal.NewFromInt(150_000), Volume24h: decimal.NewFromInt(90_000),
		},
		LPLock:  domain.LPLockFacts{Fact: highConf(), LockedPct: 90},
		Holders: domain.HolderFacts{Fact: highConf(), Top10Pct: 25},
		Simulation: domain.SimulationFacts{
			Fact: highConf(), Honeypot: true, BuyTaxPct: 0, SellTaxPct: 0,
		},
		Verification: domain.VerificationFacts{Fact: highConf(), Verified: true},
	}
	e := New(nil, WithClock(fixedClock))
	score := e.Evaluate(facts)

	require.NotNil(t, score.FinalScore)
	assert.Equal(t, domain.CategoryLikelyScam, score.Category)
	require.Len(t, score.Overrides, 1)
	assert.Equal(t, OverrideHoneypot, score.Overrides[0].Kind)
	assert.Contains(t, score.Overrides[0].TriggeringMetrics, MetricHoneypot)
}

func TestEvaluate_ExtremesSellTaxCountsAsHoneypot(t *testing.T) {
	facts := healthySolanaFacts()
	facts.Simulation = domain.SimulationFacts{
		Fact: highConf(), Honeypot: false, SellTaxPct: 99.5,
	}
	e := New(nil, WithClock(fixedClock))
	score := e.Evaluate(facts)

	assert.Equal(t, domain.CategoryLikelyScam, score.Category)
	kinds := overrideKinds(score.Overrides)
	assert.Contains(t, kinds, OverrideHoneypot)
}

func TestEvaluate_ActiveMintPlusConcentration(t *testing.T) {
	facts := healthySolanaFacts()
	facts.Authorities.MintRevoked = false
	facts.Holders.Top10Pct = 85
	e := New(stubBlacklist{}, WithClock(fixedClock))
	score := e.Evaluate(facts)

	assert.Equal(t, domain.CategoryLikelyScam, score.Category)
	kinds := overrideKinds(score.Overrides)
	require.Contains(t, kinds, OverrideMintPlusConc)
}

func TestEvaluate_TaxAsymmetryOverride(t *testing.T) {
	facts := healthySolanaFacts()
	facts.Simulation = domain.SimulationFacts{
		Fact: highConf(), BuyTaxPct: 2, SellTaxPct: 35,
	}
	e := New(nil, WithClock(fixedClock))
	score := e.Evaluate(facts)

	assert.Equal(t, domain.CategoryLikelyScam, score.Category)
	assert.Contains(t, overrideKinds(score.Overrides), OverrideTaxAsymmetry)
}

func TestEvaluate_NonTransferable(t *testing.T) {
	facts := healthySolanaFacts()
	facts.Authorities.TransferDisabled = true
	e := New(nil, WithClock(fixedClock))
	score := e.Evaluate(facts)

	assert.Equal(t, domain.CategoryLikelyScam, score.Category)
	assert.Contains(t, overrideKinds(score.Overrides), OverrideNonTransferable)
}

func TestEvaluate_CreatorPriorRugCapsAtHighRisk(t *testing.T) {
	facts := healthySolanaFacts()
	bl := stubBlacklist{
		"SOLANA:" + facts.Provenance.Creator: 2,
	}
	e := New(bl, WithClock(fixedClock))
	score := e.Evaluate(facts)

	// Otherwise-healthy facts, but the creator history ceiling applies
	require.NotNil(t, score.FinalScore)
	assert.Equal(t, domain.CategoryHighRisk, score.Category)
	require.Len(t, score.Overrides, 1)
	assert.Equal(t, OverrideCreatorRug, score.Overrides[0].Kind)
}

func TestEvaluate_WorstOverrideWins(t *testing.T) {
	facts := healthySolanaFacts()
	facts.Simulation = domain.SimulationFacts{Fact: highConf(), Honeypot: true}
	bl := stubBlacklist{"SOLANA:" + facts.Provenance.Creator: 1}
	e := New(bl, WithClock(fixedClock))
	score := e.Evaluate(facts)

	// HONEYPOT_CONFIRMED (LIKELY_SCAM) outranks CREATOR_PRIOR_RUG (HIGH_RISK)
	assert.Equal(t, domain.CategoryLikelyScam, score.Category)
	assert.Len(t, score.Overrides, 2)
}

func TestEvaluate_Unscorable(t *testing.T) {
	facts := &domain.TokenFacts{
		Chain:   domain.ChainSolana,
		Address: "So11111111111111111111111111111111111111112",
		Identity: domain.IdentityFacts{
			Fact: highConf(), Symbol: "X", Decimals: 9,
		},
		Authorities: domain.AuthorityFacts{
			Fact: highConf(), MintRevoked: true, FreezeRevoked: true,
		},
	}
	e := New(nil, WithClock(fixedClock))
	score := e.Evaluate(facts)

	// mint + freeze are the only usable metrics, below the floor of 4
	assert.Nil(t, score.FinalScore)
	assert.Equal(t, domain.CategoryUnscorable, score.Category)
	assert.NotEmpty(t, score.Metrics)
}

func TestEvaluate_UnscorableSkipsOverrides(t *testing.T) {
	facts := &domain.TokenFacts{
		Chain:   domain.ChainEthereum,
		Address: "0x1f9840a85d5af5bf1d1762f925bdaddc4201f984",
		Simulation: domain.SimulationFacts{
			Fact: highConf(), Honeypot: true,
		},
	}
	e := New(nil, WithClock(fixedClock))
	score := e.Evaluate(facts)

	// Too few metrics to score; overrides are not evaluated since there is
	// no category to downgrade
	assert.Nil(t, score.FinalScore)
	assert.Equal(t, domain.CategoryUnscorable, score.Category)
	assert.Empty(t, score.Overrides)
}

func TestEvaluate_Deterministic(t *testing.T) {
	e := New(stubBlacklist{}, WithClock(fixedClock))
	facts := healthySolanaFacts()
	first := e.Evaluate(facts)
	second := e.Evaluate(facts)
	assert.Equal(t, first, second)
}

func TestWeights_Sums(t *testing.T) {
	sum := func(m map[string]float64) float64 {
		var s float64
		for _, w := range m {
			s += w
		}
		return s
	}
	assert.InDelta(t, 1.00, sum(solanaWeights), 1e-9)
	assert.InDelta(t, 1.05, sum(evmWeights), 1e-9)

	assert.Equal(t, solanaWeights, Weights(domain.ChainSolana))
	for _, c := range []domain.Chain{domain.ChainEthereum, domain.ChainBase, domain.ChainBSC, domain.ChainPolygon} {
		assert.Equal(t, evmWeights, Weights(c))
	}
}

func TestAggregate_ExcludesMissingFromBothSides(t *testing.T) {
	metrics := []domain.MetricResult{
		{Name: "a", Score: 100, Weight: 0.5, Confidence: domain.ConfidenceHigh},
		{Name: "b", Score: 0, Weight: 0.5, Confidence: domain.ConfidenceMissing},
		{Name: "c", Score: 50, Weight: 0.5, Confidence: domain.ConfidenceLow},
	}
	score, usable := aggregate(metrics)
	assert.Equal(t, 2, usable)
	// (100*0.5 + 50*0.5) / 1.0 = 75, not dragged down by the missing metric
	assert.Equal(t, 75, score)
}

func TestAggregate_RoundsHalfToEven(t *testing.T) {
	metrics := []domain.MetricResult{
		{Name: "a", Score: 100, Weight: 0.5, Confidence: domain.ConfidenceHigh},
		{Name: "b", Score: 75, Weight: 0.5, Confidence: domain.ConfidenceHigh},
	}
	score, _ := aggregate(metrics)
	// 87.5 rounds to the even neighbor
	assert.Equal(t, int(math.RoundToEven(87.5)), score)
	assert.Equal(t, 88, score)
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Category
	}{
		{100, domain.CategorySafe},
		{80, domain.CategorySafe},
		{79, domain.CategoryCaution},
		{60, domain.CategoryCaution},
		{59, domain.CategoryHighRisk},
		{30, domain.CategoryHighRisk},
		{29, domain.CategoryLikelyScam},
		{0, domain.CategoryLikelyScam},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classify(tt.score), "score=%d", tt.score)
	}
}

func overrideKinds(overrides []domain.Override) []string {
	kinds := make([]string, 0, len(overrides))
	for _, o := range overrides {
		kinds = append(kinds, o.Kind)
	}
	return kinds
}
