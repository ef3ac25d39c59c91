package domain

import "fmt"

// Chain identifies a supported blockchain network
type Chain string

const (
	ChainSolana   Chain = "SOLANA"
	ChainEthereum Chain = "ETHEREUM"
	ChainBase     Chain = "BASE"
	ChainBSC      Chain = "BSC"
	ChainPolygon  Chain = "POLYGON"
)

// AllChains lists every chain the screener supports
var AllChains = []Chain{ChainSolana, ChainEthereum, ChainBase, ChainBSC, ChainPolygon}

// ParseChain converts a wire string into a Chain
func ParseChain(s string) (Chain, error) {
	for _, c := range AllChains {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown chain: %q", s)
}

// IsEVM reports whether the chain uses EVM-style addresses and contracts
func (c Chain) IsEVM() bool {
	switch c {
	case ChainEthereum, ChainBase, ChainBSC, ChainPolygon:
		return true
	}
	return false
}

// Valid reports whether the chain is one of the supported set
func (c Chain) Valid() bool {
	for _, v := range AllChains {
		if c == v {
			return true
		}
	}
	return false
}

// DataKind identifies one logical fetchable data need
type DataKind string

const (
	KindIdentity     DataKind = "identity"
	KindAuthorities  DataKind = "authorities"
	KindHolders      DataKind = "holders"
	KindMarket       DataKind = "market"
	KindLPLock       DataKind = "lplock"
	KindSimulation   DataKind = "simulation"
	KindProvenance   DataKind = "provenance"
	KindVerification DataKind = "verification"
	KindSocial       DataKind = "social"
)

// DataNeeds returns the full set of data kinds a scan on the chain requires.
// Simulation and source verification have no Solana counterpart; the engine's
// weight renormalization absorbs their absence.
func DataNeeds(chain Chain) []DataKind {
	kinds := []DataKind{
		KindIdentity, KindAuthorities, KindHolders,
		KindMarket, KindLPLock, KindProvenance, KindSocial,
	}
	if chain.IsEVM() {
		kinds = append(kinds, KindSimulation, KindVerification)
	}
	return kinds
}
