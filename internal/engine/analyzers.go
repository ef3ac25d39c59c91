package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// Each analyzer is a pure function over TokenFacts emitting one MetricResult
// on the 0 (certain-bad) to 100 (certain-good) scale. Analyzers whose metric
// carries no weight on the chain are skipped entirely; analyzers whose input
// facts are missing emit a MISSING result that the aggregator excludes from
// both numerator and denominator.

type analyzer func(facts *domain.TokenFacts, now time.Time) *domain.MetricResult

func analyzersFor(chain domain.Chain, bl Blacklist) []analyzer {
	all := []analyzer{
		analyzeLiquidity,
		analyzeLPLock,
		analyzeConcentration,
		analyzeMintAuthority,
		analyzeFreezeAuthority,
		analyzeHoneypot,
		analyzeTaxAsymmetry,
		analyzeTokenAge,
		creatorHistoryAnalyzer(bl),
		analyzeSocial,
		analyzeVolumeLiquidity,
		analyzeVerification,
	}
	return all
}

// linear interpolates y between (x0,y0) and (x1,y1) for x in [x0,x1]
func linear(x, x0, y0, x1, y1 float64) float64 {
	return y0 + (x-x0)*(y1-y0)/(x1-x0)
}

func roundScore(v float64) int {
	return int(math.RoundToEven(math.Max(0, math.Min(100, v))))
}

func missing(name string, weight float64) *domain.MetricResult {
	return &domain.MetricResult{
		Name:        name,
		Weight:      weight,
		Confidence:  domain.ConfidenceMissing,
		Explanation: "no usable data",
	}
}

// Liquidity depth curve: 100 at >= $100k, linear to 60 at $20k, linear to 20
// at $5k, 0 below $5k.
func analyzeLiquidity(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricLiquidityDepth)
	if f.Liquidity.Missing() {
		return missing(MetricLiquidityDepth, w)
	}
	usd, _ := f.Liquidity.USD.Float64()

	var score float64
	switch {
	case usd >= 100_000:
		score = 100
	case usd >= 20_000:
		score = linear(usd, 20_000, 60, 100_000, 100)
	case usd >= 5_000:
		score = linear(usd, 5_000, 20, 20_000, 60)
	default:
		score = 0
	}
	return &domain.MetricResult{
		Name:        MetricLiquidityDepth,
		RawValue:    usd,
		Score:       roundScore(score),
		Weight:      w,
		Confidence:  f.Liquidity.Conf,
		Explanation: fmt.Sprintf("$%.0f across %d pool(s)", usd, f.Liquidity.PoolCount),
	}
}

// LP lock curve over locked+burned percent: linear 0..20 below 20%, linear
// 20..60 to 50%, linear 60..100 to 95%, 100 above.
func analyzeLPLock(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricLPLock)
	if f.LPLock.Missing() {
		return missing(MetricLPLock, w)
	}
	secured := f.LPLock.LockedPct + f.LPLock.BurnedPct
	if secured > 100 {
		secured = 100
	}

	var score float64
	switch {
	case secured >= 95:
		score = 100
	case secured >= 50:
		score = linear(secured, 50, 60, 95, 100)
	case secured >= 20:
		score = linear(secured, 20, 20, 50, 60)
	default:
		score = linear(secured, 0, 0, 20, 20)
	}
	expl := fmt.Sprintf("%.1f%% locked, %.1f%% burned", f.LPLock.LockedPct, f.LPLock.BurnedPct)
	if f.LPLock.UnknownMajorHolder {
		expl += "; majority of LP held outside known lockers"
	}
	return &domain.MetricResult{
		Name:        MetricLPLock,
		RawValue:    secured,
		Score:       roundScore(score),
		Weight:      w,
		Confidence:  f.LPLock.Conf,
		Explanation: expl,
	}
}

// Top-10 concentration curve: 100 at <= 20%, linear to 60 at 40%, linear to
// 20 at 60%, linear to 0 at 80%, 0 above.
func analyzeConcentration(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricHolderConcentration)
	if f.Holders.Missing() {
		return missing(MetricHolderConcentration, w)
	}
	pct := f.Holders.Top10Pct

	var score float64
	switch {
	case pct <= 20:
		score = 100
	case pct <= 40:
		score = linear(pct, 20, 100, 40, 60)
	case pct <= 60:
		score = linear(pct, 40, 60, 60, 20)
	case pct <= 80:
		score = linear(pct, 60, 20, 80, 0)
	default:
		score = 0
	}
	return &domain.MetricResult{
		Name:        MetricHolderConcentration,
		RawValue:    pct,
		Score:       roundScore(score),
		Weight:      w,
		Confidence:  f.Holders.Conf,
		Explanation: fmt.Sprintf("top-10 holders own %.1f%%", pct),
	}
}

// Mint authority: revoked (or no externally callable mint on EVM) is safe
func analyzeMintAuthority(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricMintAuthority)
	if f.Authorities.Missing() {
		return missing(MetricMintAuthority, w)
	}
	score, raw, expl := 100, 0.0, "mint authority revoked"
	if !f.Authorities.MintRevoked {
		score, raw = 0, 1
		expl = "supply can still be minted"
	}
	return &domain.MetricResult{
		Name:        MetricMintAuthority,
		RawValue:    raw,
		Score:       score,
		Weight:      w,
		Confidence:  f.Authorities.Conf,
		Explanation: expl,
	}
}

// Freeze authority, Solana only: a live freeze authority can lock every
// holder account
func analyzeFreezeAuthority(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricFreezeAuthority)
	if w == 0 {
		return nil
	}
	if f.Authorities.Missing() {
		return missing(MetricFreezeAuthority, w)
	}
	score, raw, expl := 100, 0.0, "freeze authority revoked"
	if !f.Authorities.FreezeRevoked {
		score, raw = 0, 1
		expl = "freeze authority still active"
	}
	return &domain.MetricResult{
		Name:        MetricFreezeAuthority,
		RawValue:    raw,
		Score:       score,
		Weight:      w,
		Confidence:  f.Authorities.Conf,
		Explanation: expl,
	}
}

// Honeypot curve: sell failure scores 0; otherwise sell tax <= 10% scores
// 100, linear to 40 at 30%, flat 20 above.
func analyzeHoneypot(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricHoneypot)
	if f.Simulation.Missing() {
		return missing(MetricHoneypot, w)
	}
	if f.Simulation.Honeypot {
		return &domain.MetricResult{
			Name:        MetricHoneypot,
			RawValue:    1,
			Score:       0,
			Weight:      w,
			Confidence:  f.Simulation.Conf,
			Explanation: "sell simulation reverted",
		}
	}
	sell := f.Simulation.SellTaxPct
	var score float64
	switch {
	case sell <= 10:
		score = 100
	case sell <= 30:
		score = linear(sell, 10, 100, 30, 40)
	default:
		score = 20
	}
	return &domain.MetricResult{
		Name:        MetricHoneypot,
		RawValue:    sell,
		Score:       roundScore(score),
		Weight:      w,
		Confidence:  f.Simulation.Conf,
		Explanation: fmt.Sprintf("sell succeeded, %.1f%% sell tax", sell),
	}
}

// Tax asymmetry curve over |buy - sell| in percentage points: 100 at <= 2,
// linear to 20 at 10, 0 above.
func analyzeTaxAsymmetry(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricTaxAsymmetry)
	if f.Simulation.Missing() {
		return missing(MetricTaxAsymmetry, w)
	}
	delta := math.Abs(f.Simulation.BuyTaxPct - f.Simulation.SellTaxPct)

	var score float64
	switch {
	case delta <= 2:
		score = 100
	case delta < 10:
		score = linear(delta, 2, 100, 10, 20)
	default:
		score = 0
	}
	return &domain.MetricResult{
		Name:        MetricTaxAsymmetry,
		RawValue:    delta,
		Score:       roundScore(score),
		Weight:      w,
		Confidence:  f.Simulation.Conf,
		Explanation: fmt.Sprintf("buy %.1f%% / sell %.1f%%", f.Simulation.BuyTaxPct, f.Simulation.SellTaxPct),
	}
}

// Token age curve: 0 under 1h, linear to 40 at 24h, to 80 at 7d, to 100 at
// 30d, flat after.
func analyzeTokenAge(f *domain.TokenFacts, now time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricTokenAge)
	if f.Provenance.Missing() || f.Provenance.DeployedAt.IsZero() {
		return missing(MetricTokenAge, w)
	}
	hours := now.Sub(f.Provenance.DeployedAt).Hours()
	if hours < 0 {
		hours = 0
	}

	var score float64
	switch {
	case hours < 1:
		score = 0
	case hours < 24:
		score = linear(hours, 1, 0, 24, 40)
	case hours < 24*7:
		score = linear(hours, 24, 40, 24*7, 80)
	case hours < 24*30:
		score = linear(hours, 24*7, 80, 24*30, 100)
	default:
		score = 100
	}
	return &domain.MetricResult{
		Name:        MetricTokenAge,
		RawValue:    hours,
		Score:       roundScore(score),
		Weight:      w,
		Confidence:  f.Provenance.Conf,
		Explanation: fmt.Sprintf("deployed %.1f days ago", hours/24),
	}
}

// Creator history: any prior incident by the same creator zeroes the metric;
// the override additionally caps the category at HIGH_RISK
func creatorHistoryAnalyzer(bl Blacklist) analyzer {
	return func(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
		w := weightFor(f.Chain, MetricCreatorHistory)
		if f.Provenance.Missing() || f.Provenance.Creator == "" {
			return missing(MetricCreatorHistory, w)
		}
		incidents := 0
		if bl != nil {
			incidents = bl.Incidents(f.Chain, f.Provenance.Creator)
		}
		score, expl := 100, "creator has no recorded incidents"
		if incidents > 0 {
			score = 0
			expl = fmt.Sprintf("creator linked to %d prior incident(s)", incidents)
		}
		return &domain.MetricResult{
			Name:        MetricCreatorHistory,
			RawValue:    float64(incidents),
			Score:       score,
			Weight:      w,
			Confidence:  f.Provenance.Conf,
			Explanation: expl,
		}
	}
}

// Social presence: mild positive; absence is common and only mildly punished
func analyzeSocial(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricSocialPresence)
	if f.Social.Missing() {
		return missing(MetricSocialPresence, w)
	}
	score, raw, expl := 40, 0.0, "no verified social presence"
	if f.Social.Present {
		score, raw = 100, 1
		expl = "verified social presence"
	}
	return &domain.MetricResult{
		Name:        MetricSocialPresence,
		RawValue:    raw,
		Score:       score,
		Weight:      w,
		Confidence:  f.Social.Conf,
		Explanation: expl,
	}
}

// Volume/liquidity ratio bands: 0.1..10 is healthy (100), 0.05..0.1 and
// 10..20 score 60, 0.01..0.05 and 20..100 score 30, extremes 0.
func analyzeVolumeLiquidity(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricVolumeLiquidity)
	if f.Liquidity.Missing() {
		return missing(MetricVolumeLiquidity, w)
	}
	liq, _ := f.Liquidity.USD.Float64()
	vol, _ := f.Liquidity.Volume24h.Float64()
	if liq <= 0 {
		return missing(MetricVolumeLiquidity, w)
	}
	ratio := vol / liq

	var score int
	switch {
	case ratio >= 0.1 && ratio <= 10:
		score = 100
	case (ratio >= 0.05 && ratio < 0.1) || (ratio > 10 && ratio <= 20):
		score = 60
	case (ratio >= 0.01 && ratio < 0.05) || (ratio > 20 && ratio <= 100):
		score = 30
	default:
		score = 0
	}
	return &domain.MetricResult{
		Name:        MetricVolumeLiquidity,
		RawValue:    ratio,
		Score:       score,
		Weight:      w,
		Confidence:  f.Liquidity.Conf,
		Explanation: fmt.Sprintf("24h volume is %.2fx liquidity", ratio),
	}
}

// Source verification, EVM only
func analyzeVerification(f *domain.TokenFacts, _ time.Time) *domain.MetricResult {
	w := weightFor(f.Chain, MetricSourceVerification)
	if w == 0 {
		return nil
	}
	if f.Verification.Missing() {
		return missing(MetricSourceVerification, w)
	}
	score, raw, expl := 20, 0.0, "contract source not verified"
	if f.Verification.Verified {
		score, raw = 100, 1
		expl = "contract source verified"
	}
	return &domain.MetricResult{
		Name:        MetricSourceVerification,
		RawValue:    raw,
		Score:       score,
		Weight:      w,
		Confidence:  f.Verification.Conf,
		Explanation: expl,
	}
}
