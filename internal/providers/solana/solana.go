// Package solana reads SPL token mint state directly from a Solana JSON-RPC
// node. Highest fidelity for authority state and supply, but semantically
// thin: names, socials and provenance come from richer sources.
package solana

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

const ProviderID = "solana_rpc"

type Adapter struct {
	client *providers.Client
}

// New creates the Solana RPC adapter against the given node URL
func New(rpcURL string) *Adapter {
	return &Adapter{client: providers.NewClient(ProviderID, rpcURL, "", "")}
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Supports(chain domain.Chain, kind domain.DataKind) bool {
	if chain != domain.ChainSolana {
		return false
	}
	switch kind {
	case domain.KindAuthorities, domain.KindIdentity, domain.KindHolders:
		return true
	}
	return false
}

func (a *Adapter) Fetch(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*providers.Payload, error) {
	if !a.Supports(chain, kind) {
		return nil, providers.NewError(ProviderID, providers.ErrNotSupported,
			fmt.Sprintf("unsupported: %s/%s", chain, kind), nil)
	}

	start := time.Now()
	var payload *providers.Payload
	var err error
	switch kind {
	case domain.KindAuthorities, domain.KindIdentity:
		payload, err = a.fetchMint(ctx, address, kind)
	case domain.KindHolders:
		payload, err = a.fetchLargestAccounts(ctx, address)
	}
	if err != nil {
		return nil, err
	}
	payload.FetchedAt = time.Now()
	payload.LatencyMS = time.Since(start).Milliseconds()
	return payload, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	var resp struct {
		Result interface{} `json:"result"`
		Error  *rpcError   `json:"error"`
	}
	resp.Result = result
	if err := a.client.PostJSON(ctx, "", req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return providers.NewError(ProviderID, providers.ErrTransient,
			fmt.Sprintf("rpc error %d: %s", resp.Error.Code, resp.Error.Message), nil)
	}
	return nil
}

type mintAccountResult struct {
	Value *struct {
		Data struct {
			Parsed struct {
				Type string `json:"type"`
				Info struct {
					MintAuthority   *string `json:"mintAuthority"`
					FreezeAuthority *string `json:"freezeAuthority"`
					Supply          string  `json:"supply"`
					Decimals        int     `json:"decimals"`
					IsInitialized   bool    `json:"isInitialized"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"value"`
}

func (a *Adapter) fetchMint(ctx context.Context, address string, kind domain.DataKind) (*providers.Payload, error) {
	var res mintAccountResult
	params := []interface{}{address, map[string]string{"encoding": "jsonParsed"}}
	if err := a.call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, err
	}
	// A null account value is the chain's definitive "no such token"
	if res.Value == nil {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "mint account does not exist", nil)
	}
	info := res.Value.Data.Parsed.Info
	if res.Value.Data.Parsed.Type != "mint" {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "account is not an SPL mint", nil)
	}

	if kind == domain.KindAuthorities {
		return &providers.Payload{
			Kind: domain.KindAuthorities,
			Authorities: &providers.AuthorityData{
				MintRevoked:   info.MintAuthority == nil,
				FreezeRevoked: info.FreezeAuthority == nil,
				// SPL tokens have no owner or transfer-switch concept
				OwnerRenounced:   true,
				TransferDisabled: false,
			},
		}, nil
	}

	supply, err := decimal.NewFromString(info.Supply)
	if err != nil {
		return nil, providers.NewError(ProviderID, providers.ErrMalformed, "supply not numeric", err)
	}
	return &providers.Payload{
		Kind: domain.KindIdentity,
		Identity: &providers.IdentityData{
			Decimals:    info.Decimals,
			TotalSupply: supply,
		},
	}, nil
}

type largestAccountsResult struct {
	Value []struct {
		Address  string  `json:"address"`
		UIAmount float64 `json:"uiAmount"`
	} `json:"value"`
}

type supplyResult struct {
	Value struct {
		UIAmount float64 `json:"uiAmount"`
	} `json:"value"`
}

func (a *Adapter) fetchLargestAccounts(ctx context.Context, address string) (*providers.Payload, error) {
	var largest largestAccountsResult
	if err := a.call(ctx, "getTokenLargestAccounts", []interface{}{address}, &largest); err != nil {
		return nil, err
	}
	if len(largest.Value) == 0 {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "no token accounts", nil)
	}

	var supply supplyResult
	if err := a.call(ctx, "getTokenSupply", []interface{}{address}, &supply); err != nil {
		return nil, err
	}
	if supply.Value.UIAmount <= 0 {
		return nil, providers.NewError(ProviderID, providers.ErrMalformed, "zero token supply", nil)
	}

	amounts := make([]float64, 0, len(largest.Value))
	for _, acct := range largest.Value {
		amounts = append(amounts, acct.UIAmount)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(amounts)))

	var top10 float64
	for i, amt := range amounts {
		if i >= 10 {
			break
		}
		top10 += amt
	}

	return &providers.Payload{
		Kind: domain.KindHolders,
		Holders: &providers.HolderData{
			Top10Pct: top10 / supply.Value.UIAmount * 100,
			// getTokenLargestAccounts caps at 20; total holder count is not
			// available from the RPC node
			HolderCount: 0,
		},
	}, nil
}
