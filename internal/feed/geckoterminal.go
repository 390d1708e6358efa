package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/shopspring/decimal"
)

type geckoPage struct {
	Data []struct {
		Attributes struct {
			Name    string  `json:"name"`
			Address string  `json:"address"`
			FDVUSD  *string `json:"fdv_usd"`
		} `json:"attributes"`
	} `json:"data"`
}

// GeckoTerminal lists pools either by 24h transaction count or by trending rank.
type GeckoTerminal struct {
	BaseURL  string
	Trending bool
}

func (g GeckoTerminal) Name() string {
	if g.Trending {
		return "geckoterminal-trending"
	}
	return "geckoterminal-top"
}

func (g GeckoTerminal) URL(network models.Network, page int) (string, bool) {
	base := strings.TrimRight(g.BaseURL, "/")
	if base == "" {
		base = constants.GeckoTerminalBaseURL
	}
	if g.Trending {
		return fmt.Sprintf("%s/networks/%s/trending_pools?page=%d", base, network, page), true
	}
	return fmt.Sprintf("%s/networks/%s/pools?page=%d&sort=h24_tx_count_desc", base, network, page), true
}

func (g GeckoTerminal) Decode(body []byte) ([]models.Pair, error) {
	var page geckoPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errs.UnexpectedBody("geckoterminal pools: %v", err)
	}

	out := make([]models.Pair, 0, len(page.Data))
	for _, d := range page.Data {
		a := d.Attributes
		base, quote, _ := strings.Cut(a.Name, "/")
		p := models.Pair{
			Address: strings.TrimSpace(a.Address),
			Base:    strings.TrimSpace(base),
			Quote:   strings.TrimSpace(quote),
		}
		if a.FDVUSD != nil {
			if d, err := decimal.NewFromString(*a.FDVUSD); err == nil {
				f, _ := d.Float64()
				p.Liquidity = &f
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// NewGeckoTerminalTop is the top-by-transactions feed.
func NewGeckoTerminalTop(cfg ClientConfig) *Client {
	cfg.Delay = constants.GeckoTerminalDelay
	if cfg.MaxPages == 0 || cfg.MaxPages > constants.GeckoTerminalMaxPages {
		cfg.MaxPages = constants.GeckoTerminalMaxPages
	}
	return NewClient(GeckoTerminal{}, cfg)
}

// NewGeckoTerminalTrending is the trending pools feed.
func NewGeckoTerminalTrending(cfg ClientConfig) *Client {
	cfg.Delay = constants.GeckoTerminalDelay
	if cfg.MaxPages == 0 || cfg.MaxPages > constants.GeckoTerminalMaxPages {
		cfg.MaxPages = constants.GeckoTerminalMaxPages
	}
	return NewClient(GeckoTerminal{Trending: true}, cfg)
}
