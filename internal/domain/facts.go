package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Confidence tags the trustworthiness of fetched data. MISSING metrics
// contribute to neither the numerator nor denominator of the weighted score.
type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceMissing Confidence = "MISSING"
)

// Provenance tag common to every fact group
type Fact struct {
	Source    string     `json:"source"`
	Conf      Confidence `json:"confidence"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Missing reports whether the fact group never got usable data
func (f Fact) Missing() bool { return f.Conf == "" || f.Conf == ConfidenceMissing }

// IdentityFacts describe the token itself
type IdentityFacts struct {
	Fact
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    int             `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}

// AuthorityFacts capture privileged-control state. On Solana "mint revoked"
// means the mint authority is null; on EVM it means no externally callable
// mint-style function was found in the bytecode.
type AuthorityFacts struct {
	Fact
	MintRevoked      bool `json:"mint_revoked"`
	FreezeRevoked    bool `json:"freeze_revoked"`
	OwnerRenounced   bool `json:"owner_renounced"`
	TransferDisabled bool `json:"transfer_disabled"`
}

// LiquidityFacts carry live market depth in canonical USD decimals
type LiquidityFacts struct {
	Fact
	USD          decimal.Decimal `json:"usd"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
	PoolCount    int             `json:"pool_count"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	CrossChecked bool            `json:"cross_checked"`
}

// LPLockFacts describe how much of the primary pool's LP supply is locked or
// burned. UnknownMajorHolder flags LP held by an address matching no known
// locker and no burn address.
type LPLockFacts struct {
	Fact
	LockedPct          float64 `json:"locked_pct"`
	BurnedPct          float64 `json:"burned_pct"`
	UnknownMajorHolder bool    `json:"unknown_major_holder"`
}

// HolderFacts describe supply distribution
type HolderFacts struct {
	Fact
	Top10Pct     float64 `json:"top10_pct"`
	HolderCount  int64   `json:"holder_count"`
	CrossChecked bool    `json:"cross_checked"`
}

// SimulationFacts are the outcome of a simulated buy and sell
type SimulationFacts struct {
	Fact
	Honeypot    bool    `json:"honeypot"`
	BuyTaxPct   float64 `json:"buy_tax_pct"`
	SellTaxPct  float64 `json:"sell_tax_pct"`
	TransferFee bool    `json:"transfer_fee"`
}

// ProvenanceFacts identify the deployment and its author
type ProvenanceFacts struct {
	Fact
	DeployedAt time.Time `json:"deployed_at"`
	Creator    string    `json:"creator"`
}

// SocialFacts record verified off-chain presence
type SocialFacts struct {
	Fact
	Present bool `json:"present"`
}

// VerificationFacts record block-explorer source verification (EVM only)
type VerificationFacts struct {
	Fact
	Verified bool `json:"verified"`
}

// TokenFacts is the normalized union of everything fetched for one scan.
// The risk engine is a pure function over this value.
type TokenFacts struct {
	Chain   Chain  `json:"chain"`
	Address string `json:"address"`

	Identity     IdentityFacts     `json:"identity"`
	Authorities  AuthorityFacts    `json:"authorities"`
	Liquidity    LiquidityFacts    `json:"liquidity"`
	LPLock       LPLockFacts       `json:"lp_lock"`
	Holders      HolderFacts       `json:"holders"`
	Simulation   SimulationFacts   `json:"simulation"`
	Provenance   ProvenanceFacts   `json:"provenance"`
	Social       SocialFacts       `json:"social"`
	Verification VerificationFacts `json:"verification"`
}
