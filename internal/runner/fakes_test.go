package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/host"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/aman-zulfiqar/pair-sweeper/internal/ohlcv"
)

type fetchCall struct {
	network models.Network
	page    int
}

// scriptedFeed serves pages[network][page]; missing pages are empty.
type scriptedFeed struct {
	name  string
	pages map[models.Network]map[int][]models.Pair
	fail  map[models.Network]error

	mu    sync.Mutex
	calls []fetchCall
}

func (f *scriptedFeed) Name() string { return f.name }

func (f *scriptedFeed) Fetch(_ context.Context, n models.Network, page int) ([]models.Pair, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fetchCall{n, page})
	f.mu.Unlock()
	if err := f.fail[n]; err != nil {
		return nil, err
	}
	return f.pages[n][page], nil
}

func (f *scriptedFeed) Calls() []fetchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetchCall(nil), f.calls...)
}

// echoHost answers every request with a body naming its pool, unless the
// pool is listed in failures. A slot listed in slotFailures fails as a whole.
type echoHost struct {
	slots        int
	failures     map[string]error
	slotFailures map[int]error

	mu      sync.Mutex
	batches [][][]models.Request
}

func (h *echoHost) Name() string  { return "echo" }
func (h *echoHost) BulkSize() int { return h.slots }

func (h *echoHost) Invoke(_ context.Context, batches [][]models.Request) []host.SlotResult {
	h.mu.Lock()
	h.batches = append(h.batches, batches)
	h.mu.Unlock()

	out := make([]host.SlotResult, len(batches))
	for i, b := range batches {
		if err, ok := h.slotFailures[i]; ok {
			out[i].Err = err
			continue
		}
		for _, req := range b {
			out[i].Responses = append(out[i].Responses, h.respond(req))
		}
	}
	return out
}

func (h *echoHost) respond(req models.Request) models.Response {
	var (
		status uint16 = 200
		body          = fmt.Sprintf(`{"pool":%q}`, req.PoolAddress)
	)
	if err, ok := h.failures[req.PoolAddress]; ok {
		var se *errs.StatusError
		if errors.As(err, &se) {
			status = uint16(se.Code)
			body = se.Body
		} else {
			msg := err.Error()
			return models.Response{Err: &msg}
		}
	}
	return models.Response{Status: &status, Body: &body}
}

func (h *echoHost) Cycles() [][][]models.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][][]models.Request(nil), h.batches...)
}

// poolProvider decodes echoHost bodies into a two-bar series whose latest
// close is closes[pool].
type poolProvider struct {
	closes map[string]float64
}

func (p poolProvider) Decode(body []byte, _ int) ([]ohlcv.Bar, error) {
	var v struct {
		Pool string `json:"pool"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, errs.UnexpectedBody("%v", err)
	}
	return []ohlcv.Bar{{Close: 1}, {Close: p.closes[v.Pool]}}, nil
}

// alwaysAnalyzer reports every series as a signal.
type alwaysAnalyzer struct{}

func (alwaysAnalyzer) Analyze(bars []ohlcv.Bar) *ohlcv.Analysis {
	return &ohlcv.Analysis{Latest: bars[len(bars)-1], BullishEngulfing: 1}
}

type memBlockList struct {
	blocked map[string]bool
}

func (m *memBlockList) IsBlocked(_ context.Context, addr string) (bool, error) {
	return m.blocked[addr], nil
}

func (m *memBlockList) Block(_ context.Context, addr string) error {
	m.blocked[addr] = true
	return nil
}

func (m *memBlockList) Unblock(_ context.Context, addr string) (bool, error) {
	ok := m.blocked[addr]
	delete(m.blocked, addr)
	return ok, nil
}

func (m *memBlockList) Close() error { return nil }

type recordingNotifier struct {
	lines []string
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, text string) error {
	if n.err != nil {
		return n.err
	}
	n.lines = append(n.lines, text)
	return nil
}

func (n *recordingNotifier) Flush(context.Context) error { return nil }

type recordingSink struct {
	signals []*models.Signal
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, sig *models.Signal) error {
	s.signals = append(s.signals, sig)
	return nil
}

func (s *recordingSink) Close() error { return nil }

// fakeClock advances on Sleep and records every requested duration.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	if d > 0 {
		c.now = c.now.Add(d)
	}
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func pair(addr, base string, liq float64) models.Pair {
	return models.Pair{Address: addr, Base: base, Quote: "USDC", Liquidity: &liq}
}
