package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/pair-sweeper/internal/constants"
	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
)

const (
	BackendLambda = "lambda"
	BackendHTTP   = "http"
)

type Config struct {
	// Remote dispatch
	FunctionName     string
	HostBackend      string
	AWSRegions       []string
	HostEndpoints    []string
	HostAuthKey      string
	HostRequestsPer  int
	DispatchInterval time.Duration
	OHLCVLimit       int

	// Sweep policy
	MaxPages           int
	MaxAttemptsPerPair int
	MinLiquidity       float64
	RunOnce            bool
	PostImmediately    bool

	// Notifications
	Webhooks              map[models.Network]string
	NotifierFlushInterval time.Duration

	// Block-list storage
	StoragePath      string
	IgnoredPoolsFile string

	// Admin surface
	Addr    string
	AuthKey string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout time.Duration

	Debug bool
}

func Load() *Config {
	webhooks := make(map[models.Network]string)
	for _, n := range models.Networks {
		if v := strings.TrimSpace(os.Getenv("WEBHOOK_" + n.EnvKey())); v != "" {
			webhooks[n] = v
		}
	}

	return &Config{
		// Dispatch
		FunctionName:     getEnv("FUNCTION_NAME", constants.DefaultFunctionName),
		HostBackend:      strings.ToLower(getEnv("HOST_BACKEND", BackendLambda)),
		AWSRegions:       getListEnv("AWS_REGIONS", constants.DefaultAWSRegions),
		HostEndpoints:    getListEnv("HOST_ENDPOINTS", nil),
		HostAuthKey:      getEnv("HOST_AUTH_KEY", ""),
		HostRequestsPer:  getIntEnv("HOST_REQUESTS_PER_MIN", 10),
		DispatchInterval: getDurationEnv("DISPATCH_INTERVAL", constants.DispatchInterval),
		OHLCVLimit:       getIntEnv("OHLCV_LIMIT", constants.DefaultOHLCVLimit),

		// Sweep
		MaxPages:           getIntEnv("MAX_PAGES", 0),
		MaxAttemptsPerPair: getIntEnv("MAX_ATTEMPTS_PER_PAIR", 3),
		MinLiquidity:       getFloatEnv("MIN_LIQUIDITY", 1000),
		RunOnce:            getBoolEnv("RUN_ONCE", false),
		PostImmediately:    getBoolEnv("POST_IMMEDIATELY", false),

		// Notifications
		Webhooks:              webhooks,
		NotifierFlushInterval: getDurationEnv("NOTIFIER_FLUSH_INTERVAL", constants.NotifierLinger),

		// Storage
		StoragePath:      getEnv("STORAGE_PATH", "blocklist.db"),
		IgnoredPoolsFile: getEnv("IGNORED_POOLS_FILE", ""),

		// Admin
		Addr:    getEnv("ADDR", ":8080"),
		AuthKey: getEnv("AUTH_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "onchain"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 30*time.Second),

		Debug: os.Getenv("DEBUG") != "",
	}
}

// Validate checks settings the sweeper cannot start without.
func (c *Config) Validate() error {
	if c.AuthKey == "" {
		return fmt.Errorf("%w: AUTH_KEY is required", errs.ErrConfig)
	}
	if len(c.Webhooks) == 0 {
		return fmt.Errorf("%w: at least one WEBHOOK_<NETWORK> must be set", errs.ErrConfig)
	}
	if c.HostRequestsPer < 1 {
		return fmt.Errorf("%w: HOST_REQUESTS_PER_MIN must be positive", errs.ErrConfig)
	}
	if c.OHLCVLimit < 1 {
		return fmt.Errorf("%w: OHLCV_LIMIT must be positive", errs.ErrConfig)
	}
	if c.MaxPages < 0 || c.MaxAttemptsPerPair < 0 || c.MinLiquidity < 0 {
		return fmt.Errorf("%w: MAX_PAGES, MAX_ATTEMPTS_PER_PAIR and MIN_LIQUIDITY must not be negative", errs.ErrConfig)
	}
	switch c.HostBackend {
	case BackendLambda:
		if len(c.AWSRegions) == 0 {
			return fmt.Errorf("%w: AWS_REGIONS is empty", errs.ErrConfig)
		}
	case BackendHTTP:
		if len(c.HostEndpoints) == 0 {
			return fmt.Errorf("%w: HOST_ENDPOINTS is required for the http backend", errs.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown HOST_BACKEND %q", errs.ErrConfig, c.HostBackend)
	}
	return nil
}

// ValidateWorker checks the subset of settings the fetch worker reads.
func (c *Config) ValidateWorker() error {
	if c.OHLCVLimit < 1 {
		return fmt.Errorf("%w: OHLCV_LIMIT must be positive", errs.ErrConfig)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: HTTP_TIMEOUT must be positive", errs.ErrConfig)
	}
	return nil
}

// Networks returns the networks with a webhook, in rotation order.
func (c *Config) Networks() []models.Network {
	var out []models.Network
	for _, n := range models.Networks {
		if _, ok := c.Webhooks[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getListEnv(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
