package domain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// ValidateAddress checks that addr is well formed for the chain and returns
// the normalized form used for cache and dedup keys. EVM addresses normalize
// to lower hex; Solana addresses are case sensitive and pass through.
func ValidateAddress(chain Chain, addr string) (string, error) {
	if chain.IsEVM() {
		return validateEVMAddress(addr)
	}
	return validateSolanaAddress(addr)
}

// NormalizeAddress is ValidateAddress without the error; callers that already
// validated can use it to re-derive keys. Idempotent.
func NormalizeAddress(chain Chain, addr string) string {
	if chain.IsEVM() {
		return strings.ToLower(addr)
	}
	return addr
}

func validateSolanaAddress(addr string) (string, error) {
	if len(addr) < 32 || len(addr) > 44 {
		return "", fmt.Errorf("%w: solana address length %d out of range", ErrInvalidAddress, len(addr))
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return "", fmt.Errorf("%w: not base58: %v", ErrInvalidAddress, err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("%w: solana address decodes to %d bytes, want 32", ErrInvalidAddress, len(raw))
	}
	return addr, nil
}

func validateEVMAddress(addr string) (string, error) {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return "", fmt.Errorf("%w: evm address must be 0x + 40 hex chars", ErrInvalidAddress)
	}
	hexPart := addr[2:]
	if _, err := hex.DecodeString(hexPart); err != nil {
		return "", fmt.Errorf("%w: invalid hex", ErrInvalidAddress)
	}
	// Any uppercase letter implies an EIP-55 checksum that must verify.
	// Only the all-lower form carries no checksum.
	if hexPart != strings.ToLower(hexPart) {
		if checksumAddress(hexPart) != hexPart {
			return "", fmt.Errorf("%w: EIP-55 checksum mismatch", ErrInvalidAddress)
		}
	}
	return "0x" + strings.ToLower(hexPart), nil
}

// checksumAddress computes the EIP-55 mixed-case form of a 40-char hex string
func checksumAddress(hexPart string) string {
	lower := strings.ToLower(hexPart)
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	sum := h.Sum(nil)

	out := []byte(lower)
	for i := 0; i < len(out); i++ {
		c := out[i]
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - 'a' + 'A'
		}
	}
	return string(out)
}
