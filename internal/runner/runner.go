// Package runner is the sweep loop: it paginates listing feeds network by
// network, filters candidates, batches OHLCV fetches onto remote hosts and
// routes detected signals to notifiers.
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/feed"
	"github.com/aman-zulfiqar/pair-sweeper/internal/host"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/aman-zulfiqar/pair-sweeper/internal/notifier"
	"github.com/aman-zulfiqar/pair-sweeper/internal/observability"
	"github.com/aman-zulfiqar/pair-sweeper/internal/ohlcv"
	"github.com/aman-zulfiqar/pair-sweeper/internal/storage"
)

// maxFeedFailures consecutive errors retire a feed for the current network.
const maxFeedFailures = 3

type Config struct {
	MaxPages           int // 0 means no global cap
	MaxAttemptsPerPair int // failed dispatches before a pair is dropped for the sweep
	RequestsPerSlot    int // requests per slot per dispatch cycle
	DispatchInterval   time.Duration
	OHLCVLimit         int
	MinLiquidity       float64
	RunOnce            bool
	PostImmediately    bool
}

type Deps struct {
	Feeds     []feed.Feed
	Hosts     []host.Host
	BlockList storage.BlockList
	// Notifiers selects the networks to sweep: only keys present here rotate.
	Notifiers map[models.Network]notifier.Notifier
	Provider  ohlcv.Provider
	Analyzer  ohlcv.Analyzer
	Sinks     []storage.SignalSink
	Metrics   *observability.Metrics
	Clock     Clock
	Logger    *logrus.Logger
}

// Runner owns the request buffer and the per-sweep sets. It is not safe for
// concurrent use; Run drives it from a single goroutine.
type Runner struct {
	cfg      Config
	deps     Deps
	networks []models.Network
	batchLen int
	log      *logrus.Logger
	metrics  *observability.Metrics
	clock    Clock

	buffer []models.Request

	// reset per sweep
	attempts map[string]int
	dropped  map[string]struct{}

	// reset per network
	seenPools    map[string]struct{}
	seenBases    map[string]struct{}
	exhausted    map[string]bool
	feedFailures map[string]int

	lastDispatch time.Time
}

func New(cfg Config, deps Deps) (*Runner, error) {
	var networks []models.Network
	for _, n := range models.Networks {
		if _, ok := deps.Notifiers[n]; ok {
			networks = append(networks, n)
		}
	}
	if len(networks) == 0 {
		return nil, fmt.Errorf("%w: no network has a notification destination", errs.ErrConfig)
	}
	if len(deps.Feeds) == 0 {
		return nil, fmt.Errorf("%w: no feeds configured", errs.ErrConfig)
	}
	if deps.BlockList == nil {
		return nil, fmt.Errorf("%w: block-list store is required", errs.ErrConfig)
	}

	slots := 0
	for _, h := range deps.Hosts {
		slots += h.BulkSize()
	}
	if slots == 0 {
		return nil, fmt.Errorf("%w: dispatch hosts expose no slots", errs.ErrConfig)
	}

	if cfg.RequestsPerSlot <= 0 {
		cfg.RequestsPerSlot = 1
	}
	if cfg.MaxAttemptsPerPair <= 0 {
		cfg.MaxAttemptsPerPair = 3
	}
	if cfg.OHLCVLimit <= 0 {
		cfg.OHLCVLimit = constants.DefaultOHLCVLimit
	}
	if deps.Provider == nil {
		deps.Provider = ohlcv.GeckoTerminal{}
	}
	if deps.Analyzer == nil {
		deps.Analyzer = ohlcv.CandleAnalyzer{}
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics("")
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}

	r := &Runner{
		cfg:      cfg,
		deps:     deps,
		networks: networks,
		batchLen: cfg.RequestsPerSlot * slots,
		log:      deps.Logger,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
	}
	r.resetSweep()
	r.resetNetwork()
	return r, nil
}

// Networks returns the rotation order.
func (r *Runner) Networks() []models.Network { return r.networks }

// BatchLen is the buffer size that triggers a dispatch.
func (r *Runner) BatchLen() int { return r.batchLen }

// Run sweeps until ctx is done, or once when RunOnce is set. Between sweeps it
// waits for the next UTC midnight.
func (r *Runner) Run(ctx context.Context) error {
	if !r.cfg.PostImmediately {
		if err := r.cooldown(ctx); err != nil {
			return err
		}
	}
	for {
		if err := r.Sweep(ctx); err != nil {
			return err
		}
		if r.cfg.RunOnce {
			r.log.Info("run once: sweep finished, exiting")
			return nil
		}
		if err := r.cooldown(ctx); err != nil {
			return err
		}
	}
}

func (r *Runner) cooldown(ctx context.Context) error {
	now := r.clock.Now()
	until := nextMidnight(now)
	r.log.WithField("until", until.Format(time.RFC3339)).Info("cooling down until next UTC midnight")
	return r.clock.Sleep(ctx, until.Sub(now))
}

// Sweep visits every enabled network once and drains the buffer at the end.
// It only returns an error when ctx is done.
func (r *Runner) Sweep(ctx context.Context) error {
	r.resetSweep()
	start := r.clock.Now()

	for _, n := range r.networks {
		r.resetNetwork()
		if err := r.sweepNetwork(ctx, n); err != nil {
			return err
		}
	}

	for len(r.buffer) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.log.WithField("remaining", len(r.buffer)).Info("draining buffer at end of sweep")
		if err := r.dispatch(ctx); err != nil {
			return err
		}
	}

	r.metrics.SweepsCompleted.Inc()
	r.log.WithField("took", r.clock.Now().Sub(start).String()).Info("sweep complete")
	return nil
}

func (r *Runner) sweepNetwork(ctx context.Context, n models.Network) error {
	page := 1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		more, err := r.populate(ctx, n, page)
		if err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"network": n, "page": page}).Error("failed to populate pairs")
			continue
		}
		if !more {
			r.log.WithFields(logrus.Fields{"network": n, "page": page}).Info("feeds exhausted, rotating")
			return nil
		}

		for len(r.buffer) >= r.batchLen {
			r.log.WithField("buffered", len(r.buffer)).Info("reached batch size, dispatching")
			if err := r.dispatch(ctx); err != nil {
				return err
			}
		}

		page++
		if r.cfg.MaxPages > 0 && page > r.cfg.MaxPages {
			r.log.WithFields(logrus.Fields{"network": n, "max_pages": r.cfg.MaxPages}).Info("page cap reached, rotating")
			return nil
		}
	}
}

func (r *Runner) resetSweep() {
	r.attempts = make(map[string]int)
	r.dropped = make(map[string]struct{})
}

func (r *Runner) resetNetwork() {
	r.seenPools = make(map[string]struct{})
	r.seenBases = make(map[string]struct{})
	r.exhausted = make(map[string]bool)
	r.feedFailures = make(map[string]int)
}

func pairKey(n models.Network, addr string) string {
	return string(n) + "/" + addr
}

func baseKey(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}
