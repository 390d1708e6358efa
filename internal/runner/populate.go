package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/feed"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

type feedPage struct {
	feed  feed.Feed
	pairs []models.Pair
	err   error
}

// populate fetches one page from every feed still active for n and buffers
// the pairs that pass the filters. It reports false when there is nothing
// more to read on this network. An error means every active feed failed and
// the same page should be retried.
func (r *Runner) populate(ctx context.Context, n models.Network, page int) (bool, error) {
	var active []feed.Feed
	for _, f := range r.deps.Feeds {
		if !r.exhausted[f.Name()] {
			active = append(active, f)
		}
	}
	if len(active) == 0 {
		return false, nil
	}

	pages := make([]feedPage, len(active))
	var g errgroup.Group
	for i, f := range active {
		g.Go(func() error {
			pairs, err := f.Fetch(ctx, n, page)
			pages[i] = feedPage{feed: f, pairs: pairs, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var (
		failed []error
		found  bool
	)
	for _, p := range pages {
		name := p.feed.Name()
		logger := r.log.WithFields(logrus.Fields{"feed": name, "network": n, "page": page})

		if p.err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", name, p.err))
			r.metrics.FeedErrors.WithLabelValues(name, errs.Kind(p.err)).Inc()
			r.feedFailures[name]++
			if r.feedFailures[name] >= maxFeedFailures {
				r.exhausted[name] = true
				logger.WithError(p.err).Warn("feed failed repeatedly, skipping it for this network")
			} else {
				logger.WithError(p.err).Warn("feed page failed")
			}
			continue
		}
		r.feedFailures[name] = 0

		if len(p.pairs) == 0 {
			r.exhausted[name] = true
			logger.Debug("feed exhausted")
			continue
		}

		found = true
		r.metrics.PairsSeen.WithLabelValues(name, string(n)).Add(float64(len(p.pairs)))
		added := 0
		for _, pair := range p.pairs {
			if r.consider(ctx, n, pair) {
				added++
			}
		}
		logger.WithFields(logrus.Fields{"returned": len(p.pairs), "added": added}).Debug("page processed")
	}

	switch {
	case found:
		return true, nil
	case len(failed) == len(active):
		return false, fmt.Errorf("all feeds failed: %w", errors.Join(failed...))
	case len(failed) > 0:
		// remaining feeds are exhausted; retry the failing ones on this page
		return false, errors.Join(failed...)
	default:
		return false, nil
	}
}

// consider runs one pair through the filters in order: block-list, minimum
// liquidity, pool dedup. It reports whether the pair was buffered.
func (r *Runner) consider(ctx context.Context, n models.Network, p models.Pair) bool {
	blocked, err := r.deps.BlockList.IsBlocked(ctx, p.Address)
	if err != nil {
		r.log.WithError(err).WithField("pool", p.Address).Error("block-list lookup failed, treating as not blocked")
	}
	if blocked {
		r.metrics.PairsFiltered.WithLabelValues("blocked").Inc()
		return false
	}

	if p.Liquidity != nil && *p.Liquidity < r.cfg.MinLiquidity {
		r.metrics.PairsFiltered.WithLabelValues("liquidity").Inc()
		return false
	}

	if _, ok := r.seenPools[p.Address]; ok {
		r.metrics.PairsFiltered.WithLabelValues("duplicate").Inc()
		return false
	}
	if _, ok := r.dropped[pairKey(n, p.Address)]; ok {
		r.metrics.PairsFiltered.WithLabelValues("dropped").Inc()
		return false
	}
	r.seenPools[p.Address] = struct{}{}

	req := models.NewRequest(n, p, r.cfg.OHLCVLimit)
	if base := baseKey(p.Base); base != "" {
		if _, ok := r.seenBases[base]; ok {
			req.PossibleDuplicate = true
		}
		r.seenBases[base] = struct{}{}
	}

	r.buffer = append(r.buffer, req)
	r.metrics.PairsEnqueued.WithLabelValues(string(n)).Inc()
	r.metrics.BufferSize.Set(float64(len(r.buffer)))
	return true
}
