// Package dexscreener fetches DEX market data (pools, liquidity depth,
// volume, price) from the DEXScreener public API. Free tier, no auth.
package dexscreener

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

const ProviderID = "dexscreener"

// DEXScreener chain identifiers
var chainIDs = map[domain.Chain]string{
	domain.ChainSolana:   "solana",
	domain.ChainEthereum: "ethereum",
	domain.ChainBase:     "base",
	domain.ChainBSC:      "bsc",
	domain.ChainPolygon:  "polygon",
}

type Adapter struct {
	client *providers.Client
}

func New(baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.dexscreener.com"
	}
	return &Adapter{client: providers.NewClient(ProviderID, baseURL, "", "")}
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Supports(chain domain.Chain, kind domain.DataKind) bool {
	_, ok := chainIDs[chain]
	return ok && kind == domain.KindMarket
}

type pairsResponse struct {
	Pairs []struct {
		ChainID     string `json:"chainId"`
		PairAddress string `json:"pairAddress"`
		PriceUSD    string `json:"priceUsd"`
		Liquidity   struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		PairCreatedAt int64 `json:"pairCreatedAt"` // epoch millis
	} `json:"pairs"`
}

func (a *Adapter) Fetch(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*providers.Payload, error) {
	if !a.Supports(chain, kind) {
		return nil, providers.NewError(ProviderID, providers.ErrNotSupported,
			fmt.Sprintf("unsupported: %s/%s", chain, kind), nil)
	}

	start := time.Now()
	var resp pairsResponse
	if err := a.client.GetJSON(ctx, "/latest/dex/tokens/"+address, &resp); err != nil {
		return nil, err
	}

	wantChain := chainIDs[chain]
	var (
		liquidity, volume float64
		poolCount         int
		bestLiquidity     float64
		priceUSD          decimal.Decimal
		pairAddress       string
		oldestPair        int64
	)
	for _, pair := range resp.Pairs {
		if pair.ChainID != wantChain {
			continue
		}
		poolCount++
		liquidity += pair.Liquidity.USD
		volume += pair.Volume.H24
		if pair.Liquidity.USD >= bestLiquidity {
			bestLiquidity = pair.Liquidity.USD
			pairAddress = pair.PairAddress
			if p, err := decimal.NewFromString(pair.PriceUSD); err == nil {
				priceUSD = p
			}
		}
		if oldestPair == 0 || (pair.PairCreatedAt > 0 && pair.PairCreatedAt < oldestPair) {
			oldestPair = pair.PairCreatedAt
		}
	}

	// DEXScreener answers 200 with an empty pair list for unknown tokens
	if poolCount == 0 {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "no pools for token", nil)
	}

	var created time.Time
	if oldestPair > 0 {
		created = time.UnixMilli(oldestPair).UTC()
	}

	return &providers.Payload{
		Kind:      domain.KindMarket,
		FetchedAt: time.Now(),
		LatencyMS: time.Since(start).Milliseconds(),
		Market: &providers.MarketData{
			LiquidityUSD: decimal.NewFromFloat(liquidity),
			Volume24hUSD: decimal.NewFromFloat(volume),
			PriceUSD:     priceUSD,
			PoolCount:    poolCount,
			PairAddress:  pairAddress,
			PairCreated:  created,
		},
	}, nil
}
