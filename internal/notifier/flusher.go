package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

// Flusher periodically drains every notifier so buffered lines go out even
// when no new content arrives.
type Flusher struct {
	cron      *gocron.Scheduler
	notifiers map[string]Notifier
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewFlusher(notifiers map[string]Notifier, interval time.Duration, logger *logrus.Logger) (*Flusher, error) {
	if logger == nil {
		logger = logrus.New()
	}
	f := &Flusher{
		cron:      gocron.NewScheduler(time.UTC),
		notifiers: notifiers,
		timeout:   15 * time.Second,
		logger:    logger,
	}
	f.cron.SingletonModeAll()
	if _, err := f.cron.Every(interval).Do(f.FlushAll); err != nil {
		return nil, fmt.Errorf("schedule notifier flush: %w", err)
	}
	return f, nil
}

func (f *Flusher) Start() {
	f.cron.StartAsync()
	f.logger.WithField("notifiers", len(f.notifiers)).Info("notifier flusher started")
}

func (f *Flusher) Stop() {
	f.cron.Stop()
}

// FlushAll flushes each notifier once.
func (f *Flusher) FlushAll() {
	for name, n := range f.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
		if err := n.Flush(ctx); err != nil {
			f.logger.WithError(err).WithField("notifier", name).Warn("background flush failed")
		}
		cancel()
	}
}

type pender interface {
	Pending() string
}

// Drain keeps flushing until no notifier holds buffered lines or ctx is done.
// Notifiers that cannot report a backlog are flushed once.
func (f *Flusher) Drain(ctx context.Context, poll time.Duration) error {
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		f.FlushAll()
		if f.idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (f *Flusher) idle() bool {
	for _, n := range f.notifiers {
		if p, ok := n.(pender); ok && p.Pending() != "" {
			return false
		}
	}
	return true
}
