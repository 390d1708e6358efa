package models

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ValidAddress performs a cheap sanity check on a pool address. Solana
// addresses must decode to a 32 byte public key; other networks only need a
// non-empty value since their formats vary (hex, TON friendly form).
func ValidAddress(n Network, addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	if n == Solana {
		_, err := solana.PublicKeyFromBase58(addr)
		return err == nil
	}
	return true
}
