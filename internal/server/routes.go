package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
)

// RegisterRoutes wires the routes for whichever handlers are configured: the
// block-list admin surface, the fetch worker, or both.
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	e.HTTPErrorHandler = NotFoundJSON()
	e.Use(SetNoCacheHeaders)

	e.GET("/healthz", h.Health, SetJSONContentType)
	if h.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.Metrics))
	}

	if h.BlockList != nil {
		block := e.Group("/block", SetJSONContentType, keyAuth(cfg.AuthKey))
		block.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(5),
			Burst:     10,
			ExpiresIn: 2 * time.Minute,
		})))
		block.GET("", h.BlockStatus)
		block.PUT("", h.Block)
		block.DELETE("", h.Unblock)
	}

	if h.Fetcher != nil {
		invoke := []echo.MiddlewareFunc{SetJSONContentType}
		if cfg.AuthKey != "" {
			invoke = append(invoke, keyAuth(cfg.AuthKey))
		}
		e.POST("/invoke", h.Invoke, invoke...)
	}

	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}

// keyAuth checks the shared secret header. Missing or wrong keys get 401 {}.
// An empty key rejects everything.
func keyAuth(key string) echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup: "header:" + constants.AuthHeader,
		Validator: func(got string, c echo.Context) (bool, error) {
			return key != "" && subtle.ConstantTimeCompare([]byte(got), []byte(key)) == 1, nil
		},
		ErrorHandler: func(err error, c echo.Context) error {
			return c.JSON(http.StatusUnauthorized, struct{}{})
		},
	})
}
