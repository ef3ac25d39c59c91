package engine

import (
	"math"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// Override kinds
const (
	OverrideHoneypot        = "HONEYPOT_CONFIRMED"
	OverrideTaxAsymmetry    = "TAX_ASYMMETRY"
	OverrideMintPlusConc    = "ACTIVE_MINT_PLUS_CONCENTRATION"
	OverrideNonTransferable = "NON_TRANSFERABLE"
	OverrideCreatorRug      = "CREATOR_PRIOR_RUG"
)

// detectOverrides evaluates the critical-flag table. Each condition only
// fires on facts that actually arrived; absent data never triggers a flag.
// Composition happens in Evaluate by taking the worst forced category, which
// is associative and commutative.
func (e *Engine) detectOverrides(facts *domain.TokenFacts) []domain.Override {
	var overrides []domain.Override

	if !facts.Simulation.Missing() {
		if facts.Simulation.Honeypot || facts.Simulation.SellTaxPct >= 99 {
			overrides = append(overrides, domain.Override{
				Kind:              OverrideHoneypot,
				TriggeringMetrics: []string{MetricHoneypot},
				ForcedCategory:    domain.CategoryLikelyScam,
			})
		}
		delta := math.Abs(facts.Simulation.BuyTaxPct - facts.Simulation.SellTaxPct)
		if delta >= 10 && facts.Simulation.SellTaxPct > 20 {
			overrides = append(overrides, domain.Override{
				Kind:              OverrideTaxAsymmetry,
				TriggeringMetrics: []string{MetricTaxAsymmetry, MetricHoneypot},
				ForcedCategory:    domain.CategoryLikelyScam,
			})
		}
	}

	if !facts.Authorities.Missing() {
		if !facts.Authorities.MintRevoked && !facts.Holders.Missing() && facts.Holders.Top10Pct > 80 {
			overrides = append(overrides, domain.Override{
				Kind:              OverrideMintPlusConc,
				TriggeringMetrics: []string{MetricMintAuthority, MetricHolderConcentration},
				ForcedCategory:    domain.CategoryLikelyScam,
			})
		}
		if facts.Authorities.TransferDisabled {
			overrides = append(overrides, domain.Override{
				Kind:              OverrideNonTransferable,
				TriggeringMetrics: []string{MetricMintAuthority},
				ForcedCategory:    domain.CategoryLikelyScam,
			})
		}
	}

	if !facts.Provenance.Missing() && facts.Provenance.Creator != "" && e.blacklist != nil {
		if e.blacklist.Incidents(facts.Chain, facts.Provenance.Creator) > 0 {
			overrides = append(overrides, domain.Override{
				Kind:              OverrideCreatorRug,
				TriggeringMetrics: []string{MetricCreatorHistory},
				ForcedCategory:    domain.CategoryHighRisk,
			})
		}
	}

	return overrides
}
