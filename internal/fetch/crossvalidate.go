package fetch

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

// Divergence bands for cross-provider agreement, as fractions of the larger
// reading
const (
	agreeBand   = 0.10
	divergeBand = 0.30
)

// crossCheckReserve is the minimum budget left before a secondary fetch is
// worth starting; below it the single-source reading stands
const crossCheckReserve = 500 * time.Millisecond

// reconcile compares two independent readings of the same figure. Close
// agreement averages them at HIGH confidence; moderate divergence takes the
// pessimistic reading at MEDIUM; beyond that the pessimistic reading at LOW.
// pessimistic picks whichever value reads as worse for the token holder.
func reconcile(primary, secondary float64, pessimistic func(a, b float64) float64) (float64, domain.Confidence) {
	ref := math.Max(math.Abs(primary), math.Abs(secondary))
	if ref == 0 {
		return 0, domain.ConfidenceHigh
	}
	delta := math.Abs(primary-secondary) / ref
	switch {
	case delta <= agreeBand:
		return (primary + secondary) / 2, domain.ConfidenceHigh
	case delta <= divergeBand:
		return pessimistic(primary, secondary), domain.ConfidenceMedium
	}
	return pessimistic(primary, secondary), domain.ConfidenceLow
}

// crossCheck re-fetches configured kinds from an independent secondary
// provider and folds the comparison into the fact's value and confidence.
// Secondary failures leave the primary reading untouched. A primary served
// from cache does not trigger a fresh secondary call.
func (f *Fetcher) crossCheck(ctx context.Context, chain domain.Chain, address string, byKind map[domain.DataKind]kindResult, facts *domain.TokenFacts) {
	for kind, pair := range f.opts.CrossChecks {
		primary := byKind[kind]
		if primary.payload == nil || primary.fromCache {
			continue
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < crossCheckReserve {
			return
		}

		var secondaryID string
		switch primary.source {
		case pair[0]:
			secondaryID = pair[1]
		case pair[1]:
			secondaryID = pair[0]
		default:
			continue
		}

		adapter, ok := f.registry.Get(secondaryID)
		if !ok || !adapter.Supports(chain, kind) {
			continue
		}

		payload, err := f.callProvider(ctx, adapter, chain, address, kind)
		if err != nil {
			log.Debug().Err(err).
				Str("provider", secondaryID).
				Str("kind", string(kind)).
				Msg("cross-check fetch failed, keeping single-source reading")
			continue
		}

		switch kind {
		case domain.KindMarket:
			reconcileMarket(facts, payload, secondaryID)
		case domain.KindHolders:
			reconcileHolders(facts, payload, secondaryID)
		}
	}
}

// Liquidity disagreements resolve toward the shallower pool
func reconcileMarket(facts *domain.TokenFacts, secondary *providers.Payload, secondaryID string) {
	if secondary.Market == nil {
		return
	}
	a, _ := facts.Liquidity.USD.Float64()
	b, _ := secondary.Market.LiquidityUSD.Float64()
	value, conf := reconcile(a, b, math.Min)

	facts.Liquidity.USD = decimal.NewFromFloat(value)
	facts.Liquidity.Conf = conf
	facts.Liquidity.Source = facts.Liquidity.Source + "+" + secondaryID
	facts.Liquidity.CrossChecked = true

	if conf != domain.ConfidenceHigh {
		log.Info().
			Float64("primary_usd", a).
			Float64("secondary_usd", b).
			Str("confidence", string(conf)).
			Msg("liquidity readings diverge across providers")
	}
}

// Concentration disagreements resolve toward the more concentrated reading
func reconcileHolders(facts *domain.TokenFacts, secondary *providers.Payload, secondaryID string) {
	if secondary.Holders == nil {
		return
	}
	value, conf := reconcile(facts.Holders.Top10Pct, secondary.Holders.Top10Pct, math.Max)

	facts.Holders.Top10Pct = value
	facts.Holders.Conf = conf
	facts.Holders.Source = facts.Holders.Source + "+" + secondaryID
	facts.Holders.CrossChecked = true
	if facts.Holders.HolderCount == 0 {
		facts.Holders.HolderCount = secondary.Holders.HolderCount
	}
}
