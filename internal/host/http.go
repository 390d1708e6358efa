package host

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/sirupsen/logrus"
)

type HTTPConfig struct {
	Endpoints  []string // one slot per endpoint
	AuthKey    string   // sent as X-Auth-Key when set
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// HTTPHost invokes self-hosted fetch workers over plain HTTP.
type HTTPHost struct {
	endpoints []string
	authKey   string
	http      *http.Client
	logger    *logrus.Logger
}

func NewHTTPHost(cfg HTTPConfig) (*HTTPHost, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("%w: http host needs at least one endpoint", errs.ErrConfig)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &HTTPHost{
		endpoints: cfg.Endpoints,
		authKey:   cfg.AuthKey,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger,
	}, nil
}

func (h *HTTPHost) Name() string  { return "http" }
func (h *HTTPHost) BulkSize() int { return len(h.endpoints) }

func (h *HTTPHost) Invoke(ctx context.Context, batches [][]models.Request) []SlotResult {
	return invokeAll(ctx, batches, func(ctx context.Context, slot int, batch []models.Request) ([]models.Response, error) {
		if slot >= len(h.endpoints) {
			return nil, fmt.Errorf("%w: no endpoint for slot %d", errs.ErrRemoteInvocation, slot)
		}
		return h.post(ctx, h.endpoints[slot], batch)
	})
}

func (h *HTTPHost) post(ctx context.Context, endpoint string, batch []models.Request) ([]models.Response, error) {
	payload, err := models.EncodeRequests(batch)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrRemoteInvocation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.authKey != "" {
		req.Header.Set(constants.AuthHeader, h.authKey)
	}

	h.logger.WithFields(logrus.Fields{"endpoint": endpoint, "requests": len(batch)}).Debug("invoking http slot")
	res, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrRemoteInvocation, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errs.Transport(err)
	}
	if res.StatusCode != http.StatusOK {
		return nil, errs.Status(res.StatusCode, string(body))
	}
	return decodeResponses(body)
}
