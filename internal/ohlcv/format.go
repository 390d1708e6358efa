package ohlcv

import (
	"fmt"
	"math"
	"strings"

	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/shopspring/decimal"
)

// FormatMarketCap renders a USD amount as $950, $12.3K, $4.5M or $1.2B.
func FormatMarketCap(v *float64) string {
	if v == nil || math.IsNaN(*v) || *v < 0 {
		return "n/a"
	}
	d := decimal.NewFromFloat(*v)
	switch {
	case *v >= 1e9:
		return "$" + d.Div(decimal.NewFromInt(1_000_000_000)).StringFixed(1) + "B"
	case *v >= 1e6:
		return "$" + d.Div(decimal.NewFromInt(1_000_000)).StringFixed(1) + "M"
	case *v >= 1e3:
		return "$" + d.Div(decimal.NewFromInt(1_000)).StringFixed(1) + "K"
	default:
		return "$" + d.StringFixed(0)
	}
}

// FormatPrice keeps four significant digits without exponent notation.
func FormatPrice(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	places := int32(2)
	if abs := math.Abs(v); abs < 1 {
		places = int32(-math.Floor(math.Log10(abs))) + 3
	}
	return decimal.NewFromFloat(v).Round(places).String()
}

// Format renders one notification line for a pair and its analysis.
func Format(req models.Request, a *Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s `%s` mcap %s close %s",
		req.Network.Title(), req.Symbols(), req.PoolAddress, FormatMarketCap(req.MarketCap), FormatPrice(a.Latest.Close))

	if a.RangeHighBroken != nil {
		fmt.Fprintf(&sb, " | broke range high %s", FormatPrice(*a.RangeHighBroken))
	}
	if a.RangeLowBroken != nil {
		fmt.Fprintf(&sb, " | broke range low %s", FormatPrice(*a.RangeLowBroken))
	}
	if a.BullishEngulfing > 0 {
		fmt.Fprintf(&sb, " | bullish engulfing x%d", a.BullishEngulfing)
	}
	if a.BearishEngulfing > 0 {
		fmt.Fprintf(&sb, " | bearish engulfing x%d", a.BearishEngulfing)
	}
	if req.PossibleDuplicate {
		sb.WriteString(" | dup base?")
	}
	return sb.String()
}
