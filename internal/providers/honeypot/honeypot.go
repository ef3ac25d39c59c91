// Package honeypot wraps a trade-simulation API that performs a simulated
// buy and sell against the canonical router for each EVM chain (Uniswap V2
// on Ethereum/Base, PancakeSwap on BSC, QuickSwap on Polygon) and reports
// taxes and sellability.
package honeypot

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

const ProviderID = "honeypot_sim"

// numeric chain IDs the simulation API expects
var chainIDs = map[domain.Chain]string{
	domain.ChainEthereum: "1",
	domain.ChainBSC:      "56",
	domain.ChainPolygon:  "137",
	domain.ChainBase:     "8453",
}

type Adapter struct {
	client *providers.Client
}

func New(baseURL, apiKey string) *Adapter {
	if baseURL == "" {
		baseURL = "https://api.honeypot.is"
	}
	return &Adapter{client: providers.NewClient(ProviderID, baseURL, apiKey, "X-API-KEY")}
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Supports(chain domain.Chain, kind domain.DataKind) bool {
	_, ok := chainIDs[chain]
	return ok && kind == domain.KindSimulation
}

type simResponse struct {
	HoneypotResult *struct {
		IsHoneypot bool `json:"isHoneypot"`
	} `json:"honeypotResult"`
	SimulationResult *struct {
		BuyTax      float64 `json:"buyTax"`
		SellTax     float64 `json:"sellTax"`
		TransferTax float64 `json:"transferTax"`
	} `json:"simulationResult"`
	Token *struct {
		Address string `json:"address"`
	} `json:"token"`
}

func (a *Adapter) Fetch(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*providers.Payload, error) {
	if !a.Supports(chain, kind) {
		return nil, providers.NewError(ProviderID, providers.ErrNotSupported,
			fmt.Sprintf("unsupported: %s/%s", chain, kind), nil)
	}

	start := time.Now()
	q := url.Values{}
	q.Set("address", address)
	q.Set("chainID", chainIDs[chain])

	var resp simResponse
	if err := a.client.GetJSON(ctx, "/v2/IsHoneypot?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Token == nil {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "token unknown to simulator", nil)
	}
	if resp.HoneypotResult == nil || resp.SimulationResult == nil {
		return nil, providers.NewError(ProviderID, providers.ErrMalformed, "simulation result incomplete", nil)
	}

	sim := resp.SimulationResult
	return &providers.Payload{
		Kind:      domain.KindSimulation,
		FetchedAt: time.Now(),
		LatencyMS: time.Since(start).Milliseconds(),
		Simulation: &providers.SimulationData{
			Honeypot:    resp.HoneypotResult.IsHoneypot,
			BuyTaxPct:   sim.BuyTax,
			SellTaxPct:  sim.SellTax,
			TransferFee: sim.TransferTax > 0,
		},
	}, nil
}
