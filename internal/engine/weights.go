package engine

import "github.com/sawpanic/tokensleuth/internal/domain"

// Canonical metric names. Stable: they appear in the wire schema and in
// override trigger lists.
const (
	MetricLiquidityDepth      = "liquidity_depth"
	MetricLPLock              = "lp_lock"
	MetricHolderConcentration = "holder_concentration"
	MetricMintAuthority       = "mint_authority"
	MetricFreezeAuthority     = "freeze_authority"
	MetricHoneypot            = "honeypot"
	MetricTaxAsymmetry        = "tax_asymmetry"
	MetricTokenAge            = "token_age"
	MetricCreatorHistory      = "creator_history"
	MetricSocialPresence      = "social_presence"
	MetricVolumeLiquidity     = "volume_liquidity"
	MetricSourceVerification  = "source_verification"
)

// solanaWeights sum to 1.00. Freeze authority and the Solana mint authority
// check replace the EVM hidden-mint and verification metrics.
var solanaWeights = map[string]float64{
	MetricLiquidityDepth:      0.20,
	MetricLPLock:              0.15,
	MetricHolderConcentration: 0.15,
	MetricMintAuthority:       0.12,
	MetricFreezeAuthority:     0.12,
	MetricHoneypot:            0.10,
	MetricTaxAsymmetry:        0.05,
	MetricTokenAge:            0.03,
	MetricCreatorHistory:      0.05,
	MetricSocialPresence:      0.02,
	MetricVolumeLiquidity:     0.01,
}

// evmWeights sum to 1.05 as documented upstream; the aggregator normalizes
// by the realized weight sum, so the overshoot only shifts relative emphasis.
// TODO: confirm intended EVM weights with product before the table is treated
// as authoritative.
var evmWeights = map[string]float64{
	MetricLiquidityDepth:      0.15,
	MetricLPLock:              0.20,
	MetricHolderConcentration: 0.10,
	MetricMintAuthority:       0.15,
	MetricHoneypot:            0.15,
	MetricTaxAsymmetry:        0.10,
	MetricTokenAge:            0.05,
	MetricCreatorHistory:      0.05,
	MetricSocialPresence:      0.02,
	MetricVolumeLiquidity:     0.03,
	MetricSourceVerification:  0.05,
}

// Weights returns the metric weight table for a chain
func Weights(chain domain.Chain) map[string]float64 {
	if chain.IsEVM() {
		return evmWeights
	}
	return solanaWeights
}

// weightFor looks up one metric's weight; metrics absent from the chain's
// table weigh zero and are skipped by the analyzers.
func weightFor(chain domain.Chain, metric string) float64 {
	return Weights(chain)[metric]
}
