// Package evm reads token contract state from EVM JSON-RPC nodes: bytecode
// presence and hidden-mint scan, ERC-20 identity, ownership renouncement, and
// LP-lock balances against a configured set of locker and burn addresses.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

const ProviderID = "evm_rpc"

// ERC-20 and Ownable function selectors
const (
	selDecimals    = "0x313ce567"
	selTotalSupply = "0x18160ddd"
	selOwner       = "0x8da5cb5b"
	selBalanceOf   = "0x70a08231"
)

// Externally callable mint-style selectors scanned for in bytecode. A match
// means supply can be inflated even when no mint authority is advertised.
var mintSelectors = []string{
	"40c10f19", // mint(address,uint256)
	"a0712d68", // mint(uint256)
	"1249c58b", // mint()
}

var zeroAddress = "0x" + strings.Repeat("0", 40)

type Adapter struct {
	clients map[domain.Chain]*providers.Client
	lockers map[domain.Chain][]string
	burners []string
}

// New creates the EVM RPC adapter. rpcURLs maps each supported chain to its
// node; lockers lists known LP lock-contract addresses per chain; burners are
// chain-agnostic burn addresses.
func New(rpcURLs map[domain.Chain]string, lockers map[domain.Chain][]string, burners []string) *Adapter {
	clients := make(map[domain.Chain]*providers.Client, len(rpcURLs))
	for chain, url := range rpcURLs {
		clients[chain] = providers.NewClient(ProviderID, url, "", "")
	}
	if len(burners) == 0 {
		burners = []string{zeroAddress, "0x000000000000000000000000000000000000dead"}
	}
	return &Adapter{clients: clients, lockers: lockers, burners: burners}
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Supports(chain domain.Chain, kind domain.DataKind) bool {
	if _, ok := a.clients[chain]; !ok {
		return false
	}
	switch kind {
	case domain.KindIdentity, domain.KindAuthorities, domain.KindLPLock:
		return true
	}
	return false
}

// Fetch answers one data kind. For KindLPLock the address argument is the LP
// pair token of the primary pool, not the scanned token; the fetcher resolves
// the pair from market data first.
func (a *Adapter) Fetch(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*providers.Payload, error) {
	if !a.Supports(chain, kind) {
		return nil, providers.NewError(ProviderID, providers.ErrNotSupported,
			fmt.Sprintf("unsupported: %s/%s", chain, kind), nil)
	}
	client := a.clients[chain]

	start := time.Now()
	var payload *providers.Payload
	var err error
	switch kind {
	case domain.KindIdentity:
		payload, err = a.fetchIdentity(ctx, client, address)
	case domain.KindAuthorities:
		payload, err = a.fetchAuthorities(ctx, client, address)
	case domain.KindLPLock:
		payload, err = a.fetchLPLock(ctx, client, chain, address)
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

func (a *Adapter) call(ctx context.Context, client *providers.Client, method string, params ...interface{}) (string, error) {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	var resp struct {
		Result string `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := client.PostJSON(ctx, "", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		// Reverts on view calls surface here; callers decide what they mean
		return "", providers.NewError(ProviderID, providers.ErrMalformed,
			fmt.Sprintf("rpc error %d: %s", resp.Error.Code, resp.Error.Message), nil)
	}
	return resp.Result, nil
}

func (a *Adapter) ethCall(ctx context.Context, client *providers.Client, to, data string) (string, error) {
	return a.call(ctx, client, "eth_call", map[string]string{"to": to, "data": data}, "latest")
}

func (a *Adapter) fetchIdentity(ctx context.Context, client *providers.Client, address string) (*providers.Payload, error) {
	decimalsHex, err := a.ethCall(ctx, client, address, selDecimals)
	if err != nil {
		return nil, err
	}
	supplyHex, err := a.ethCall(ctx, client, address, selTotalSupply)
	if err != nil {
		return nil, err
	}

	decimals, ok := parseUint(decimalsHex)
	if !ok {
		return nil, providers.NewError(ProviderID, providers.ErrMalformed, "decimals not numeric", nil)
	}
	supply, ok := parseBig(supplyHex)
	if !ok {
		return nil, providers.NewError(ProviderID, providers.ErrMalformed, "totalSupply not numeric", nil)
	}

	return &providers.Payload{
		Kind: domain.KindIdentity,
		Identity: &providers.IdentityData{
			Decimals:    int(decimals),
			TotalSupply: decimal.NewFromBigInt(supply, 0),
		},
	}, nil
}

func (a *Adapter) fetchAuthorities(ctx context.Context, client *providers.Client, address string) (*providers.Payload, error) {
	code, err := a.call(ctx, client, "eth_getCode", address, "latest")
	if err != nil {
		return nil, err
	}
	// No bytecode means the address is an EOA or nothing: not a token
	if code == "" || code == "0x" {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "no contract at address", nil)
	}

	hiddenMint := false
	lower := strings.ToLower(code)
	for _, sel := range mintSelectors {
		if strings.Contains(lower, sel) {
			hiddenMint = true
			break
		}
	}

	// owner() reverting means the contract has no Ownable surface at all,
	// which is as good as renounced
	renounced := true
	if ownerHex, err := a.ethCall(ctx, client, address, selOwner); err == nil {
		owner := wordToAddress(ownerHex)
		renounced = owner == zeroAddress || owner == ""
	}

	return &providers.Payload{
		Kind: domain.KindAuthorities,
		Authorities: &providers.AuthorityData{
			MintRevoked:    !hiddenMint,
			FreezeRevoked:  true, // no EVM freeze-authority equivalent
			OwnerRenounced: renounced,
		},
	}, nil
}

func (a *Adapter) fetchLPLock(ctx context.Context, client *providers.Client, chain domain.Chain, lpToken string) (*providers.Payload, error) {
	supplyHex, err := a.ethCall(ctx, client, lpToken, selTotalSupply)
	if err != nil {
		return nil, err
	}
	supply, ok := parseBig(supplyHex)
	if !ok || supply.Sign() <= 0 {
		return nil, providers.NewError(ProviderID, providers.ErrMalformed, "lp totalSupply not numeric", nil)
	}

	lockedPct, err := a.heldPct(ctx, client, lpToken, a.lockers[chain], supply)
	if err != nil {
		return nil, err
	}
	burnedPct, err := a.heldPct(ctx, client, lpToken, a.burners, supply)
	if err != nil {
		return nil, err
	}

	return &providers.Payload{
		Kind: domain.KindLPLock,
		LPLock: &providers.LPLockData{
			LockedPct: lockedPct,
			BurnedPct: burnedPct,
			// Majority of LP supply outside known lockers and burns is a
			// signal we may be under-reporting lock coverage
			UnknownMajorHolder: lockedPct+burnedPct < 50,
		},
	}, nil
}

func (a *Adapter) heldPct(ctx context.Context, client *providers.Client, token string, holders []string, supply *big.Int) (float64, error) {
	total := new(big.Int)
	for _, holder := range holders {
		data := selBalanceOf + strings.Repeat("0", 24) + strings.TrimPrefix(strings.ToLower(holder), "0x")
		balHex, err := a.ethCall(ctx, client, token, data)
		if err != nil {
			return 0, err
		}
		if bal, ok := parseBig(balHex); ok {
			total.Add(total, bal)
		}
	}
	pct, _ := new(big.Float).Quo(new(big.Float).SetInt(total), new(big.Float).SetInt(supply)).Float64()
	return pct * 100, nil
}

func parseBig(hexWord string) (*big.Int, bool) {
	s := strings.TrimPrefix(hexWord, "0x")
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 16)
	return v, ok
}

func parseUint(hexWord string) (uint64, bool) {
	v, ok := parseBig(hexWord)
	if !ok || !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}

// wordToAddress extracts the 20-byte address from a 32-byte ABI return word
func wordToAddress(hexWord string) string {
	s := strings.TrimPrefix(strings.ToLower(hexWord), "0x")
	if len(s) < 40 {
		return ""
	}
	return "0x" + s[len(s)-40:]
}
