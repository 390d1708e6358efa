// Package ohlcv decodes daily bar series returned through remote slots and
// derives the candle signals that get posted.
package ohlcv

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
)

type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Provider turns an upstream OHLCV body into bars in ascending time order.
type Provider interface {
	Decode(body []byte, limit int) ([]Bar, error)
}

type geckoOHLCV struct {
	Data *struct {
		Attributes struct {
			List [][6]float64 `json:"ohlcv_list"`
		} `json:"attributes"`
	} `json:"data"`
	Status *struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

// GeckoTerminal decodes /pools/{pool}/ohlcv/day bodies.
type GeckoTerminal struct{}

func (GeckoTerminal) Decode(body []byte, limit int) ([]Bar, error) {
	var resp geckoOHLCV
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errs.UnexpectedBody("ohlcv: %v", err)
	}
	if resp.Status != nil && resp.Data == nil {
		return nil, errs.Status(resp.Status.ErrorCode, resp.Status.ErrorMessage)
	}
	if resp.Data == nil {
		return nil, errs.UnexpectedBody("ohlcv: missing data")
	}

	list := resp.Data.Attributes.List
	if len(list) == 0 {
		return nil, errs.UnexpectedBody("ohlcv: empty series")
	}
	if limit > 0 && len(list) > limit {
		return nil, errs.UnexpectedBody("ohlcv: %d bars for limit %d", len(list), limit)
	}

	bars := make([]Bar, 0, len(list))
	for _, row := range list {
		bars = append(bars, Bar{
			Time:   time.Unix(int64(row[0]), 0).UTC(),
			Open:   row[1],
			High:   row[2],
			Low:    row[3],
			Close:  row[4],
			Volume: row[5],
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
