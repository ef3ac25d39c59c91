// Package metadata wraps an indexer API (Helius/Birdeye class) that serves
// token identity, holder distribution, provenance, social links and, on
// Solana, LP custody. Indexed data can lag the chain, so everything here is
// MEDIUM confidence until cross-validated.
package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

const ProviderID = "token_indexer"

var chainSlugs = map[domain.Chain]string{
	domain.ChainSolana:   "solana",
	domain.ChainEthereum: "ethereum",
	domain.ChainBase:     "base",
	domain.ChainBSC:      "bsc",
	domain.ChainPolygon:  "polygon",
}

type Adapter struct {
	client *providers.Client
}

func New(baseURL, apiKey string) *Adapter {
	return &Adapter{client: providers.NewClient(ProviderID, baseURL, apiKey, "X-API-KEY")}
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Supports(chain domain.Chain, kind domain.DataKind) bool {
	if _, ok := chainSlugs[chain]; !ok {
		return false
	}
	switch kind {
	case domain.KindIdentity, domain.KindHolders, domain.KindProvenance, domain.KindSocial:
		return true
	case domain.KindLPLock:
		// LP custody endpoint only indexes Solana AMMs
		return chain == domain.ChainSolana
	}
	return false
}

type tokenResponse struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"total_supply"`

	HolderCount int64 `json:"holder_count"`
	TopHolders  []struct {
		Address string  `json:"address"`
		Pct     float64 `json:"pct"`
	} `json:"top_holders"`

	Creator    string `json:"creator"`
	DeployedAt int64  `json:"deployed_at"` // epoch seconds

	Socials struct {
		Twitter  string `json:"twitter"`
		Telegram string `json:"telegram"`
	} `json:"socials"`

	LPCustody *struct {
		LockedPct     float64 `json:"locked_pct"`
		BurnedPct     float64 `json:"burned_pct"`
		UnknownHolder bool    `json:"unknown_holder"`
	} `json:"lp_custody"`
}

func (a *Adapter) Fetch(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*providers.Payload, error) {
	if !a.Supports(chain, kind) {
		return nil, providers.NewError(ProviderID, providers.ErrNotSupported,
			fmt.Sprintf("unsupported: %s/%s", chain, kind), nil)
	}

	start := time.Now()
	var resp tokenResponse
	path := fmt.Sprintf("/v0/tokens/%s/%s", chainSlugs[chain], address)
	if err := a.client.GetJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	payload := &providers.Payload{
		Kind:      kind,
		FetchedAt: time.Now(),
	}

	switch kind {
	case domain.KindIdentity:
		if resp.Symbol == "" {
			return nil, providers.NewError(ProviderID, providers.ErrMalformed, "identity fields empty", nil)
		}
		supply, err := decimal.NewFromString(resp.TotalSupply)
		if err != nil {
			supply = decimal.Zero
		}
		payload.Identity = &providers.IdentityData{
			Name:        resp.Name,
			Symbol:      resp.Symbol,
			Decimals:    resp.Decimals,
			TotalSupply: supply,
		}

	case domain.KindHolders:
		if len(resp.TopHolders) == 0 {
			return nil, providers.NewError(ProviderID, providers.ErrMalformed, "no holder data", nil)
		}
		var top10 float64
		for i, h := range resp.TopHolders {
			if i >= 10 {
				break
			}
			top10 += h.Pct
		}
		payload.Holders = &providers.HolderData{
			Top10Pct:    top10,
			HolderCount: resp.HolderCount,
		}

	case domain.KindProvenance:
		if resp.Creator == "" && resp.DeployedAt == 0 {
			return nil, providers.NewError(ProviderID, providers.ErrMalformed, "no provenance data", nil)
		}
		payload.Provenance = &providers.ProvenanceData{
			DeployedAt: time.Unix(resp.DeployedAt, 0).UTC(),
			Creator:    resp.Creator,
		}

	case domain.KindSocial:
		payload.Social = &providers.SocialData{
			Present: resp.Socials.Twitter != "" || resp.Socials.Telegram != "",
		}

	case domain.KindLPLock:
		if resp.LPCustody == nil {
			return nil, providers.NewError(ProviderID, providers.ErrMalformed, "no lp custody data", nil)
		}
		payload.LPLock = &providers.LPLockData{
			LockedPct:          resp.LPCustody.LockedPct,
			BurnedPct:          resp.LPCustody.BurnedPct,
			UnknownMajorHolder: resp.LPCustody.UnknownHolder,
		}
	}

	payload.LatencyMS = time.Since(start).Milliseconds()
	return payload, nil
}
