// Package fetchbars is the remote side of a dispatch slot: it fetches daily
// OHLCV bodies for a batch of requests and reports each exchange verbatim.
package fetchbars

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL      string
	DefaultLimit int
	HTTPClient   *http.Client
	Logger       *logrus.Logger
}

type Fetcher struct {
	baseURL string
	limit   int
	http    *http.Client
	logger  *logrus.Logger
}

func New(cfg Config) *Fetcher {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = constants.GeckoTerminalBaseURL
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = constants.DefaultOHLCVLimit
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Fetcher{baseURL: base, limit: cfg.DefaultLimit, http: cfg.HTTPClient, logger: cfg.Logger}
}

// Handle fetches every request concurrently. The result is index-aligned with
// reqs; a failed fetch is reported in its envelope, never as a handler error.
func (f *Fetcher) Handle(ctx context.Context, reqs []models.Request) ([]models.Response, error) {
	out := make([]models.Response, len(reqs))
	var g errgroup.Group
	for i, r := range reqs {
		g.Go(func() error {
			out[i] = f.fetch(ctx, r)
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

func (f *Fetcher) url(r models.Request) string {
	limit := r.Limit
	if limit <= 0 {
		limit = f.limit
	}
	return fmt.Sprintf("%s/networks/%s/pools/%s/ohlcv/day?limit=%d",
		f.baseURL, url.PathEscape(string(r.Network)), url.PathEscape(r.PoolAddress), limit)
}

func (f *Fetcher) fetch(ctx context.Context, r models.Request) models.Response {
	u := f.url(r)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return failed(err)
	}
	req.Header.Set("Accept", constants.FeedAccept)

	res, err := f.http.Do(req)
	if err != nil {
		f.logger.WithError(err).WithField("pool", r.PoolAddress).Warn("ohlcv fetch failed")
		return failed(err)
	}
	defer res.Body.Close()

	code := uint16(res.StatusCode)
	body, err := io.ReadAll(res.Body)
	if err != nil {
		resp := failed(err)
		resp.Status = &code
		return resp
	}
	s := string(body)
	return models.Response{Status: &code, Body: &s}
}

func failed(err error) models.Response {
	msg := err.Error()
	return models.Response{Err: &msg}
}
