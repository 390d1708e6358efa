package models

import "time"

// Signal is a posted analysis, flattened for archiving and pub/sub.
type Signal struct {
	Network           Network   `json:"network"`
	PoolAddress       string    `json:"pool_address"`
	Base              string    `json:"base"`
	Quote             string    `json:"quote"`
	MarketCap         *float64  `json:"market_cap,omitempty"`
	BarTime           time.Time `json:"bar_time"`
	Close             float64   `json:"close"`
	Volume            float64   `json:"volume"`
	RangeHighBroken   *float64  `json:"range_high_broken,omitempty"`
	RangeLowBroken    *float64  `json:"range_low_broken,omitempty"`
	BullishEngulfing  int       `json:"bullish_engulfing"`
	BearishEngulfing  int       `json:"bearish_engulfing"`
	PossibleDuplicate bool      `json:"possible_duplicate"`
	DetectedAt        time.Time `json:"detected_at"`
}
