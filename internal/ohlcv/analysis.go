package ohlcv

import "math"

// Analysis describes what the most recent daily candle did relative to the
// rest of the series. Zero counts and nil bounds mean "not detected".
type Analysis struct {
	Latest Bar

	// Previous range bound that the latest close broke through.
	RangeHighBroken *float64
	RangeLowBroken  *float64

	// Number of consecutive prior candle bodies engulfed by the latest one.
	BullishEngulfing int
	BearishEngulfing int
}

type Analyzer interface {
	Analyze(bars []Bar) *Analysis
}

// CandleAnalyzer detects range breaks and engulfing reversals on the last bar.
type CandleAnalyzer struct{}

func (CandleAnalyzer) Analyze(bars []Bar) *Analysis {
	if len(bars) < 2 {
		return nil
	}
	latest := bars[len(bars)-1]
	prior := bars[:len(bars)-1]

	a := &Analysis{Latest: latest}

	high, low := math.Inf(-1), math.Inf(1)
	for _, b := range prior {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	if latest.Close > high {
		a.RangeHighBroken = &high
	}
	if latest.Close < low {
		a.RangeLowBroken = &low
	}

	prev := prior[len(prior)-1]
	switch {
	case latest.Close > latest.Open && prev.Close < prev.Open:
		a.BullishEngulfing = engulfed(latest, prior)
	case latest.Close < latest.Open && prev.Close > prev.Open:
		a.BearishEngulfing = engulfed(latest, prior)
	}

	if a.RangeHighBroken == nil && a.RangeLowBroken == nil && a.BullishEngulfing == 0 && a.BearishEngulfing == 0 {
		return nil
	}
	return a
}

// engulfed counts prior bodies, newest first, that fit inside the latest body.
func engulfed(latest Bar, prior []Bar) int {
	top, bottom := body(latest)
	n := 0
	for i := len(prior) - 1; i >= 0; i-- {
		t, b := body(prior[i])
		if t > top || b < bottom {
			break
		}
		n++
	}
	return n
}

func body(b Bar) (top, bottom float64) {
	return math.Max(b.Open, b.Close), math.Min(b.Open, b.Close)
}
