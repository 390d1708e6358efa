package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/sirupsen/logrus"
)

type WebhookConfig struct {
	URL        string
	MaxChars   int // message ceiling, defaults to constants.NotifierMaxChars
	HTTPClient *http.Client
	Logger     *logrus.Logger
	Now        func() time.Time
	// OnRateLimited is called for every 429 reply.
	OnRateLimited func()
}

// BufferedWebhook coalesces lines into messages no larger than MaxChars and
// paces posts by the reset window the channel reports.
//
// The pacing decision reads and updates shared state around a network call,
// so it assumes one producer per instance. The sweeper routes each network to
// its own instance; the background flusher is the only other caller and never
// adds content. A second producer would need a different pacing scheme.
type BufferedWebhook struct {
	url       string
	maxChars  int
	http      *http.Client
	logger    *logrus.Logger
	now       func() time.Time
	onLimited func()

	mu    sync.Mutex // guards buf, reset and last
	buf   string
	reset time.Duration
	last  time.Time

	sending sync.Mutex // held for the duration of one post
}

func NewBufferedWebhook(cfg WebhookConfig) *BufferedWebhook {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = constants.NotifierMaxChars
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BufferedWebhook{
		url:       cfg.URL,
		maxChars:  cfg.MaxChars,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
		now:       cfg.Now,
		onLimited: cfg.OnRateLimited,
		last:      cfg.Now(),
	}
}

// Notify queues every non-empty line of text verbatim; only a trailing \r is
// stripped.
func (w *BufferedWebhook) Notify(ctx context.Context, text string) error {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSuffix(l, "\r")
		if l == "" {
			continue
		}
		if len(l) > w.maxChars {
			return fmt.Errorf("%w: %d > %d chars", ErrLineTooLong, len(l), w.maxChars)
		}
		lines = append(lines, l)
	}
	return w.push(ctx, lines)
}

func (w *BufferedWebhook) Flush(ctx context.Context) error {
	return w.push(ctx, nil)
}

// Pending returns the buffered, unsent content.
func (w *BufferedWebhook) Pending() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf
}

func (w *BufferedWebhook) push(ctx context.Context, lines []string) error {
	w.mu.Lock()
	for _, l := range lines {
		w.buf += l + "\n"
	}
	elapsed := w.now().Sub(w.last)
	if len(w.buf) < w.maxChars && elapsed < w.reset {
		w.mu.Unlock()
		return nil
	}
	if w.buf == "" {
		w.mu.Unlock()
		return nil
	}
	if !w.sending.TryLock() {
		// a post is in flight; it will leave our lines for the next round
		w.mu.Unlock()
		return nil
	}
	defer w.sending.Unlock()

	msg, rest := splitLines(w.buf, w.maxChars)
	w.buf = rest
	w.mu.Unlock()

	if msg == "" {
		return nil
	}
	return w.post(ctx, msg)
}

// splitLines returns the longest whole-line prefix of buf that fits in max
// chars and the remainder. Once a line does not fit, every later line goes
// to the remainder so order is preserved.
func splitLines(buf string, max int) (msg, rest string) {
	var m, r strings.Builder
	overflow := false
	for _, l := range strings.Split(buf, "\n") {
		if l == "" {
			continue
		}
		if overflow || m.Len()+len(l) > max {
			overflow = true
			r.WriteString(l)
			r.WriteByte('\n')
			continue
		}
		m.WriteString(l)
		m.WriteByte('\n')
	}
	return m.String(), r.String()
}

type webhookPayload struct {
	Content string `json:"content"`
}

func (w *BufferedWebhook) post(ctx context.Context, msg string) error {
	b, err := json.Marshal(webhookPayload{Content: strings.TrimSuffix(msg, "\n")})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		w.requeue(msg, constants.NotifierDefaultReset)
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	w.logger.WithField("len", len(msg)).Debug("posting to webhook")
	res, err := w.http.Do(req)
	if err != nil {
		w.requeue(msg, constants.NotifierDefaultReset)
		return errs.Transport(err)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)

	reset := headerSeconds(res.Header, "X-RateLimit-Reset-After")
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		retry := headerSeconds(res.Header, "Retry-After")
		if retry == 0 {
			retry = reset
		}
		if w.onLimited != nil {
			w.onLimited()
		}
		w.logger.WithField("retry_after", retry).Warn("webhook rate limited, requeueing message")
		w.requeue(msg, retry)
	case res.StatusCode >= 500:
		w.requeue(msg, reset)
	default:
		w.settle(reset)
	}

	w.mu.Lock()
	pending := len(w.buf)
	w.mu.Unlock()
	w.logger.WithFields(logrus.Fields{"status": res.StatusCode, "pending": pending}).Debug("webhook post done")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return errs.Status(res.StatusCode, string(body))
	}
	return nil
}

// settle records the window after a post the channel accepted or rejected
// for good.
func (w *BufferedWebhook) settle(reset time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reset = orDefault(reset)
	w.last = w.now()
}

// requeue puts msg back in front of anything buffered since it was taken.
func (w *BufferedWebhook) requeue(msg string, reset time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = msg + w.buf
	w.reset = orDefault(reset)
	w.last = w.now()
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return constants.NotifierDefaultReset
	}
	return d
}

// headerSeconds parses a fractional seconds header, rounding up.
func headerSeconds(h http.Header, key string) time.Duration {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(math.Ceil(f)) * time.Second
}
