// Package explorer wraps Etherscan-family block explorer APIs for source
// verification status and contract creation provenance. EVM only.
package explorer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sawpanic/tokensleuth/internal/domain"
	"github.com/sawpanic/tokensleuth/internal/providers"
)

const ProviderID = "block_explorer"

type Adapter struct {
	clients map[domain.Chain]*providers.Client
	apiKeys map[domain.Chain]string
}

// New creates the explorer adapter. baseURLs maps each chain to its explorer
// API root (api.etherscan.io, api.bscscan.com, ...).
func New(baseURLs, apiKeys map[domain.Chain]string) *Adapter {
	clients := make(map[domain.Chain]*providers.Client, len(baseURLs))
	for chain, base := range baseURLs {
		// Etherscan-family auth travels as a query parameter, not a header
		clients[chain] = providers.NewClient(ProviderID, base, "", "")
	}
	return &Adapter{clients: clients, apiKeys: apiKeys}
}

func (a *Adapter) ID() string { return ProviderID }

func (a *Adapter) Supports(chain domain.Chain, kind domain.DataKind) bool {
	if _, ok := a.clients[chain]; !ok {
		return false
	}
	return kind == domain.KindVerification || kind == domain.KindProvenance
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
	case domain.KindVerification:
		payload, err = a.fetchVerification(ctx, chain, address)
	case domain.KindProvenance:
		payload, err = a.fetchCreation(ctx, chain, address)
	}
	if err != nil {
		return nil, err
	}
	payload.FetchedAt = time.Now()
	payload.LatencyMS = time.Since(start).Milliseconds()
	return payload, nil
}

func (a *Adapter) query(chain domain.Chain, module, action, address string) string {
	q := url.Values{}
	q.Set("module", module)
	q.Set("action", action)
	q.Set("address", address)
	if key := a.apiKeys[chain]; key != "" {
		q.Set("apikey", key)
	}
	return "/api?" + q.Encode()
}

type sourceCodeResponse struct {
	Status string `json:"status"`
	Result []struct {
		SourceCode   string `json:"SourceCode"`
		ContractName string `json:"ContractName"`
	} `json:"result"`
}

func (a *Adapter) fetchVerification(ctx context.Context, chain domain.Chain, address string) (*providers.Payload, error) {
	var resp sourceCodeResponse
	if err := a.clients[chain].GetJSON(ctx, a.query(chain, "contract", "getsourcecode", address), &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "contract unknown to explorer", nil)
	}
	return &providers.Payload{
		Kind: domain.KindVerification,
		Verification: &providers.VerificationData{
			Verified: resp.Result[0].SourceCode != "",
		},
	}, nil
}

type creationResponse struct {
	Status string `json:"status"`
	Result []struct {
		ContractCreator string `json:"contractCreator"`
		TxHash          string `json:"txHash"`
		Timestamp       int64  `json:"timestamp,string"`
	} `json:"result"`
}

func (a *Adapter) fetchCreation(ctx context.Context, chain domain.Chain, address string) (*providers.Payload, error) {
	var resp creationResponse
	if err := a.clients[chain].GetJSON(ctx, a.query(chain, "contract", "getcontractcreation", address), &resp); err != nil {
		return nil, err
	}
	if len(resp.Result) == 0 {
		return nil, providers.NewError(ProviderID, providers.ErrNotFound, "no creation record", nil)
	}
	res := resp.Result[0]
	var deployed time.Time
	if res.Timestamp > 0 {
		deployed = time.Unix(res.Timestamp, 0).UTC()
	}
	return &providers.Payload{
		Kind: domain.KindProvenance,
		Provenance: &providers.ProvenanceData{
			DeployedAt: deployed,
			Creator:    res.ContractCreator,
		},
	}, nil
}
