package models

import (
	"strings"
)

// Network is the lowercase chain identifier used by the listing APIs.
type Network string

const (
	Solana    Network = "solana"
	Ethereum  Network = "eth"
	Base      Network = "base"
	Blast     Network = "blast"
	TON       Network = "ton"
	BSC       Network = "bsc"
	Arbitrum  Network = "arbitrum"
	Avalanche Network = "avax"
	Optimism  Network = "optimism"
	Fantom    Network = "ftm"
	Metis     Network = "metis"
	Ronin     Network = "ronin"
)

// Networks lists every supported network in rotation order.
var Networks = []Network{
	Solana, Ethereum, Base, Blast, TON, BSC,
	Arbitrum, Avalanche, Optimism, Fantom, Metis, Ronin,
}

var titles = map[Network]string{
	Solana:    "Solana",
	Ethereum:  "Ethereum",
	Base:      "Base",
	Blast:     "Blast",
	TON:       "TON",
	BSC:       "BSC",
	Arbitrum:  "Arbitrum",
	Avalanche: "Avalanche",
	Optimism:  "Optimism",
	Fantom:    "Fantom",
	Metis:     "Metis",
	Ronin:     "Ronin",
}

func (n Network) String() string { return string(n) }

// Title is the human readable network name used in notifications.
func (n Network) Title() string {
	if t, ok := titles[n]; ok {
		return t
	}
	return string(n)
}

// EnvKey is the suffix used for per-network environment variables.
func (n Network) EnvKey() string {
	return strings.ToUpper(string(n))
}

// ParseNetwork accepts either the wire id ("eth") or the title ("Ethereum").
func ParseNetwork(s string) (Network, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, n := range Networks {
		if string(n) == s || strings.ToLower(n.Title()) == s {
			return n, true
		}
	}
	return "", false
}
