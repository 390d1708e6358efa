package runner

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/host"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/aman-zulfiqar/pair-sweeper/internal/ohlcv"
)

// dispatch runs one cycle: it waits out the pacing interval, hands up to
// BatchLen requests from the head of the buffer to the hosts and processes
// every result. Failed pairs go back to the tail of the buffer.
func (r *Runner) dispatch(ctx context.Context) error {
	if !r.lastDispatch.IsZero() {
		wait := r.lastDispatch.Add(r.cfg.DispatchInterval).Sub(r.clock.Now())
		if err := r.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	plan := r.partition()
	r.lastDispatch = r.clock.Now()
	r.metrics.DispatchCycles.Inc()
	r.metrics.BufferSize.Set(float64(len(r.buffer)))

	results := make([][][]host.Result, len(r.deps.Hosts))
	var g errgroup.Group
	for i, h := range r.deps.Hosts {
		g.Go(func() error {
			results[i] = host.Trigger(ctx, h, plan[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := range plan {
		for s := range plan[i] {
			for j, req := range plan[i][s] {
				r.handle(ctx, req, results[i][s][j])
			}
		}
	}
	r.metrics.BufferSize.Set(float64(len(r.buffer)))
	return nil
}

// partition takes requests from the head of the buffer and lays them out as
// plan[host][slot], RequestsPerSlot per slot. A short buffer leaves trailing
// slots empty.
func (r *Runner) partition() [][][]models.Request {
	plan := make([][][]models.Request, len(r.deps.Hosts))
	for i, h := range r.deps.Hosts {
		plan[i] = make([][]models.Request, h.BulkSize())
		for s := range plan[i] {
			k := min(r.cfg.RequestsPerSlot, len(r.buffer))
			if k == 0 {
				continue
			}
			plan[i][s] = append([]models.Request(nil), r.buffer[:k]...)
			r.buffer = r.buffer[k:]
		}
	}
	return plan
}

func (r *Runner) handle(ctx context.Context, req models.Request, res host.Result) {
	logger := r.log.WithFields(logrus.Fields{"network": req.Network, "pool": req.PoolAddress})

	err := res.Err
	var bars []ohlcv.Bar
	if err == nil {
		bars, err = r.deps.Provider.Decode(res.Body, req.Limit)
	}
	if err != nil {
		r.fail(req, err, logger)
		return
	}
	r.metrics.DispatchOutcomes.WithLabelValues("ok", "analyze").Inc()

	a := r.deps.Analyzer.Analyze(bars)
	if a == nil {
		return
	}
	r.post(ctx, req, a, logger)
}

func (r *Runner) fail(req models.Request, err error, logger *logrus.Entry) {
	key := pairKey(req.Network, req.PoolAddress)
	kind := errs.Kind(err)

	if errs.IsNotFound(err) {
		r.dropped[key] = struct{}{}
		r.metrics.DispatchOutcomes.WithLabelValues(kind, "drop").Inc()
		logger.WithError(err).Info("pool not found upstream, dropping")
		return
	}

	r.attempts[key]++
	if r.attempts[key] >= r.cfg.MaxAttemptsPerPair {
		r.dropped[key] = struct{}{}
		r.metrics.DispatchOutcomes.WithLabelValues(kind, "give_up").Inc()
		logger.WithError(err).WithField("attempts", r.attempts[key]).Warn("giving up on pair")
		return
	}

	r.buffer = append(r.buffer, req)
	r.metrics.DispatchOutcomes.WithLabelValues(kind, "retry").Inc()
	logger.WithError(err).Warn("fetch failed, re-queued")
}

func (r *Runner) post(ctx context.Context, req models.Request, a *ohlcv.Analysis, logger *logrus.Entry) {
	n, ok := r.deps.Notifiers[req.Network]
	if !ok {
		logger.Warn("no notifier for network")
		return
	}
	line := ohlcv.Format(req, a)
	if err := n.Notify(ctx, line); err != nil {
		r.metrics.NotifierErrors.WithLabelValues(string(req.Network)).Inc()
		logger.WithError(err).Error("failed to notify")
	} else {
		r.metrics.SignalsPosted.WithLabelValues(string(req.Network)).Inc()
	}

	sig := toSignal(req, a, r.clock.Now())
	for _, sink := range r.deps.Sinks {
		if err := sink.Publish(ctx, sig); err != nil {
			logger.WithError(err).WithField("sink", sink.Name()).Error("failed to publish signal")
		}
	}
}

func toSignal(req models.Request, a *ohlcv.Analysis, now time.Time) *models.Signal {
	sig := &models.Signal{
		Network:           req.Network,
		PoolAddress:       req.PoolAddress,
		MarketCap:         req.MarketCap,
		BarTime:           a.Latest.Time,
		Close:             a.Latest.Close,
		Volume:            a.Latest.Volume,
		RangeHighBroken:   a.RangeHighBroken,
		RangeLowBroken:    a.RangeLowBroken,
		BullishEngulfing:  a.BullishEngulfing,
		BearishEngulfing:  a.BearishEngulfing,
		PossibleDuplicate: req.PossibleDuplicate,
		DetectedAt:        now.UTC(),
	}
	if req.Token != nil {
		sig.Base, sig.Quote = req.Token[0], req.Token[1]
	}
	return sig
}
