package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress_Solana(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "wrapped_sol_mint", addr: "So11111111111111111111111111111111111111112"},
		{name: "usdc_mint", addr: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"},
		{name: "too_short", addr: "abc", wantErr: true},
		{name: "bad_base58_chars", addr: "0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl", wantErr: true},
		{name: "wrong_decoded_length", addr: "2wWb5Jrv4aQkNWWAqhTw7rCk8c5ZKy86zYwFoWbVL", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateAddress(ChainSolana, tt.addr)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidAddress)
				return
			}
			require.NoError(t, err)
			// Solana addresses are case sensitive and never rewritten
			assert.Equal(t, tt.addr, got)
		})
	}
}

func TestValidateAddress_EVM(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		want    string
		wantErr bool
	}{
		{
			name: "eip55_checksum_valid",
			addr: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			want: "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed",
		},
		{
			name: "eip55_checksum_valid_2",
			addr: "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
			want: "0xfb6916095ca1df60bb79ce92ce3ea74c37c5d359",
		},
		{
			name: "all_lower_no_checksum",
			addr: "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
			want: "0xdbf03b407c01e7cd3cbea99509d93f8dddc8c6fb",
		},
		{
			name:    "eip55_checksum_broken",
			addr:    "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1beAed",
			wantErr: true,
		},
		{
			// Uppercase letters demand a checksum match; the shouting form
			// of a checksummed address is not exempt
			name:    "all_upper_fails_checksum",
			addr:    "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED",
			wantErr: true,
		},
		{name: "missing_prefix", addr: "5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed00", wantErr: true},
		{name: "too_short", addr: "0x1234", wantErr: true},
		{name: "non_hex", addr: "0xzz6916095ca1df60bb79ce92ce3ea74c37c5d359", wantErr: true},
	}

	for _, chain := range []Chain{ChainEthereum, ChainBase, ChainBSC, ChainPolygon} {
		for _, tt := range tests {
			t.Run(string(chain)+"_"+tt.name, func(t *testing.T) {
				got, err := ValidateAddress(chain, tt.addr)
				if tt.wantErr {
					require.Error(t, err)
					assert.ErrorIs(t, err, ErrInvalidAddress)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestNormalizeAddress_Idempotent(t *testing.T) {
	evm := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	once := NormalizeAddress(ChainEthereum, evm)
	assert.Equal(t, once, NormalizeAddress(ChainEthereum, once))

	sol := "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	assert.Equal(t, sol, NormalizeAddress(ChainSolana, NormalizeAddress(ChainSolana, sol)))
}

func TestParseChain(t *testing.T) {
	c, err := ParseChain("SOLANA")
	require.NoError(t, err)
	assert.Equal(t, ChainSolana, c)
	assert.False(t, c.IsEVM())

	c, err = ParseChain("BSC")
	require.NoError(t, err)
	assert.True(t, c.IsEVM())

	_, err = ParseChain("DOGECOIN")
	assert.Error(t, err)
}

func TestWorst_Composition(t *testing.T) {
	assert.Equal(t, CategoryLikelyScam, Worst(CategorySafe, CategoryLikelyScam))
	assert.Equal(t, CategoryHighRisk, Worst(CategoryHighRisk, CategoryCaution))
	// Overrides never raise the category
	assert.Equal(t, CategoryLikelyScam, Worst(CategoryLikelyScam, CategoryHighRisk))
	// Associative and commutative
	assert.Equal(t,
		Worst(Worst(CategorySafe, CategoryHighRisk), CategoryCaution),
		Worst(CategorySafe, Worst(CategoryHighRisk, CategoryCaution)))
}
