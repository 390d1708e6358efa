package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/pair-sweeper/internal/fetchbars"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"github.com/aman-zulfiqar/pair-sweeper/internal/storage"
)

// Handlers contains the dependencies for the HTTP endpoints. Nil members
// disable their routes.
type Handlers struct {
	BlockList storage.BlockList  // admin surface
	Fetcher   *fetchbars.Fetcher // fetch-worker mode
	Metrics   http.Handler       // Prometheus exposition
	DevMode   bool               // Enable detailed error responses in development
	Logger    *logrus.Logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

func (h *Handlers) log() *logrus.Logger {
	if h.Logger == nil {
		h.Logger = logrus.New()
	}
	return h.Logger
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

func addrParam(c echo.Context) string {
	return strings.TrimSpace(c.QueryParam("addr"))
}

// Block adds ?addr= to the block-list. Blocking twice is fine.
func (h *Handlers) Block(c echo.Context) error {
	addr := addrParam(c)
	if addr == "" {
		return h.err(c, http.StatusBadRequest, "missing addr", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	if err := h.BlockList.Block(ctx, addr); err != nil {
		h.log().WithError(err).WithField("addr", addr).Error("failed to block address")
		return h.err(c, http.StatusInternalServerError, "failed to block address", err.Error())
	}
	h.log().WithField("addr", addr).Info("blocked address")
	return c.JSON(http.StatusOK, struct{}{})
}

// Unblock removes ?addr= from the block-list. Unknown addresses still get 200.
func (h *Handlers) Unblock(c echo.Context) error {
	addr := addrParam(c)
	if addr == "" {
		return h.err(c, http.StatusBadRequest, "missing addr", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	removed, err := h.BlockList.Unblock(ctx, addr)
	if err != nil {
		h.log().WithError(err).WithField("addr", addr).Error("failed to unblock address")
		return h.err(c, http.StatusInternalServerError, "failed to unblock address", err.Error())
	}
	h.log().WithFields(logrus.Fields{"addr": addr, "was_blocked": removed}).Info("unblocked address")
	return c.JSON(http.StatusOK, struct{}{})
}

func (h *Handlers) BlockStatus(c echo.Context) error {
	addr := addrParam(c)
	if addr == "" {
		return h.err(c, http.StatusBadRequest, "missing addr", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	blocked, err := h.BlockList.IsBlocked(ctx, addr)
	if err != nil {
		h.log().WithError(err).WithField("addr", addr).Error("failed to read block-list")
		return h.err(c, http.StatusInternalServerError, "failed to read block-list", err.Error())
	}
	return c.JSON(http.StatusOK, BlockStatusResponse{Address: addr, Blocked: blocked})
}

// Invoke is the HTTP flavor of the remote fetch function: a JSON list of
// requests in, the index-aligned envelopes out.
func (h *Handlers) Invoke(c echo.Context) error {
	var reqs []models.Request
	if err := c.Bind(&reqs); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", err.Error())
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	out, err := h.Fetcher.Handle(ctx, reqs)
	if err != nil {
		h.log().WithError(err).Error("fetch batch failed")
		return h.err(c, http.StatusInternalServerError, "fetch failed", err.Error())
	}
	if out == nil {
		out = []models.Response{}
	}
	return c.JSON(http.StatusOK, out)
}
