package feed

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

// platformIDs maps networks to CoinMarketCap dexer platform ids.
var platformIDs = map[models.Network]int{
	models.Solana:    16,
	models.Ethereum:  1,
	models.Base:      199,
	models.Blast:     210,
	models.TON:       173,
	models.BSC:       14,
	models.Arbitrum:  51,
	models.Avalanche: 28,
	models.Optimism:  42,
	models.Fantom:    24,
	models.Metis:     99,
	models.Ronin:     66,
}

type cmcPage struct {
	Data *struct {
		HasNextPage bool `json:"hasNextPage"`
		Total       int  `json:"total"`
		PageList    []struct {
			BaseTokenSymbol     string `json:"baseTokenSymbol"`
			PairContractAddress string `json:"pairContractAddress"`
			// upstream spelling
			QuoteTokenSymbol string `json:"quotoTokenSymbol"`
		} `json:"pageList"`
	} `json:"data"`
}

// CoinMarketCap lists dexer pairs sorted by 24h transactions.
type CoinMarketCap struct {
	BaseURL string
}

func (CoinMarketCap) Name() string { return "coinmarketcap" }

func (c CoinMarketCap) URL(network models.Network, page int) (string, bool) {
	id, ok := platformIDs[network]
	if !ok {
		return "", false
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = constants.CoinMarketCapBaseURL
	}
	return fmt.Sprintf("%s/dexer/v3/platformpage/pair-pages?platform-id=%d&sort-field=txs24h&desc=true&page=%d&pageSize=%d",
		base, id, page, constants.CoinMarketCapPageSize), true
}

func (CoinMarketCap) Decode(body []byte) ([]models.Pair, error) {
	var page cmcPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, errs.UnexpectedBody("coinmarketcap pair pages: %v", err)
	}
	if page.Data == nil {
		return nil, errs.UnexpectedBody("coinmarketcap pair pages: missing data")
	}

	out := make([]models.Pair, 0, len(page.Data.PageList))
	for _, p := range page.Data.PageList {
		out = append(out, models.Pair{
			Address: strings.TrimSpace(p.PairContractAddress),
			Base:    p.BaseTokenSymbol,
			Quote:   p.QuoteTokenSymbol,
		})
	}
	return out, nil
}

func NewCoinMarketCap(cfg ClientConfig) *Client {
	cfg.Delay = constants.CoinMarketCapDelay
	return NewClient(CoinMarketCap{}, cfg)
}
