// Package feed paginates ranked pair listings from public market-data APIs.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Feed returns one page of candidate pairs. An empty page means the feed has
// nothing more for this network.
type Feed interface {
	Name() string
	Fetch(ctx context.Context, network models.Network, page int) ([]models.Pair, error)
}

// Source describes one listing API: where a page lives and how to read it.
type Source interface {
	Name() string
	URL(network models.Network, page int) (string, bool)
	Decode(body []byte) ([]models.Pair, error)
}

type ClientConfig struct {
	Delay      time.Duration // minimum gap between two requests from this client
	MaxPages   int           // 0 means unbounded
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client is a throttled Feed over a Source. One Client per listing source;
// the throttle is shared by all goroutines calling it.
type Client struct {
	src      Source
	http     *http.Client
	limiter  *rate.Limiter
	maxPages int
	logger   *logrus.Logger
}

func NewClient(src Source, cfg ClientConfig) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}
	return &Client{
		src:      src,
		http:     cfg.HTTPClient,
		limiter:  rate.NewLimiter(limit, 1),
		maxPages: cfg.MaxPages,
		logger:   cfg.Logger,
	}
}

func (c *Client) Name() string { return c.src.Name() }

func (c *Client) Fetch(ctx context.Context, network models.Network, page int) ([]models.Pair, error) {
	log := c.logger.WithFields(logrus.Fields{"feed": c.src.Name(), "network": network, "page": page})

	if c.maxPages > 0 && page > c.maxPages {
		log.Debug("max pages reached for feed")
		return nil, nil
	}
	u, ok := c.src.URL(network, page)
	if !ok {
		log.Debug("network not listed by feed")
		return nil, nil
	}

	// The limiter hands out reservations one delay apart, so concurrent
	// callers cannot share a window.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("feed throttle: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", constants.FeedAccept)
	req.Header.Set("User-Agent", constants.FeedUserAgent)
	req.Header.Set("Cache-Control", "no-cache")

	log.WithField("url", u).Debug("GET")
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Transport(err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errs.Transport(err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		log.WithField("status", res.StatusCode).Warn("non-success status from feed")
		return nil, errs.Status(res.StatusCode, string(body))
	}

	pairs, err := c.src.Decode(body)
	if err != nil {
		return nil, err
	}

	out := pairs[:0]
	for _, p := range pairs {
		if !models.ValidAddress(network, p.Address) {
			log.WithField("pool", p.Address).Debug("dropping malformed pool address")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
