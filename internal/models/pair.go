package models

import "encoding/json"

// Pair is a candidate pool discovered on a listing page.
type Pair struct {
	Address   string
	Base      string
	Quote     string
	Liquidity *float64 // FDV or liquidity in USD when the feed reports one
}

// Request is one OHLCV fetch routed to a remote slot.
type Request struct {
	Network           Network    `json:"network"`
	PoolAddress       string     `json:"pool_address"`
	Token             *[2]string `json:"token"`
	Limit             int        `json:"limit,omitempty"`
	MarketCap         *float64   `json:"market_cap,omitempty"`
	PossibleDuplicate bool       `json:"possible_duplicate,omitempty"`
}

// NewRequest builds a Request for pair p on network n.
func NewRequest(n Network, p Pair, limit int) Request {
	r := Request{
		Network:     n,
		PoolAddress: p.Address,
		Limit:       limit,
		MarketCap:   p.Liquidity,
	}
	if p.Base != "" || p.Quote != "" {
		r.Token = &[2]string{p.Base, p.Quote}
	}
	return r
}

// Symbols returns "BASE/QUOTE" or the pool address when tokens are unknown.
func (r Request) Symbols() string {
	if r.Token == nil {
		return r.PoolAddress
	}
	return r.Token[0] + "/" + r.Token[1]
}

// Response is the envelope a remote slot returns for each Request.
// Err set means the remote function trapped; otherwise Status and Body describe
// the upstream HTTP exchange.
type Response struct {
	Status *uint16 `json:"status,omitempty"`
	Body   *string `json:"body,omitempty"`
	Err    *string `json:"err,omitempty"`
}

// EncodeRequests is the payload sent to a remote slot.
func EncodeRequests(reqs []Request) ([]byte, error) {
	if reqs == nil {
		reqs = []Request{}
	}
	return json.Marshal(reqs)
}
