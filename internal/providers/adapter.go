package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/tokensleuth/internal/domain"
)

// CallTimeout is the hard deadline applied to every adapter call regardless
// of the source's own defaults. Configurable at startup only, before any
// client is constructed.
var CallTimeout = 2 * time.Second

// Adapter is the narrow contract every data source implements. Supports
// advertises capability; Fetch answers exactly one (chain, address, kind)
// triple with canonical units (USD decimals, percentages 0-100, supply in
// smallest unit).
type Adapter interface {
	ID() string
	Supports(chain domain.Chain, kind domain.DataKind) bool
	Fetch(ctx context.Context, chain domain.Chain, address string, kind domain.DataKind) (*Payload, error)
}

// Payload is the typed response for one data kind. Exactly one section is
// populated, selected by Kind.
type Payload struct {
	Kind      domain.DataKind
	FetchedAt time.Time
	LatencyMS int64

	Identity     *IdentityData
	Authorities  *AuthorityData
	Holders      *HolderData
	Market       *MarketData
	LPLock       *LPLockData
	Simulation   *SimulationData
	Provenance   *ProvenanceData
	Social       *SocialData
	Verification *VerificationData
}

// IdentityData names the token
type IdentityData struct {
	Name        string
	Symbol      string
	Decimals    int
	TotalSupply decimal.Decimal
}

// AuthorityData captures privileged-control state
type AuthorityData struct {
	MintRevoked      bool
	FreezeRevoked    bool
	OwnerRenounced   bool
	TransferDisabled bool
}

// HolderData describes supply distribution
type HolderData struct {
	Top10Pct    float64
	HolderCount int64
}

// MarketData carries DEX liquidity and volume in USD. PairAddress is the LP
// token of the deepest pool; EVM LP-lock checks key off it.
type MarketData struct {
	LiquidityUSD decimal.Decimal
	Volume24hUSD decimal.Decimal
	PriceUSD     decimal.Decimal
	PoolCount    int
	PairAddress  string
	PairCreated  time.Time
}

// LPLockData describes LP supply custody for the primary pool
type LPLockData struct {
	LockedPct          float64
	BurnedPct          float64
	UnknownMajorHolder bool
}

// SimulationData is a simulated buy+sell outcome
type SimulationData struct {
	Honeypot    bool
	BuyTaxPct   float64
	SellTaxPct  float64
	TransferFee bool
}

// ProvenanceData identifies the deployment
type ProvenanceData struct {
	DeployedAt time.Time
	Creator    string
}

// SocialData records verified off-chain presence
type SocialData struct {
	Present bool
}

// VerificationData records explorer source verification
type VerificationData struct {
	Verified bool
}
