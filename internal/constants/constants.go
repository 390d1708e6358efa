package constants

import "time"

// Upstream endpoints
const (
	GeckoTerminalBaseURL = "https://api.geckoterminal.com/api/v2"
	CoinMarketCapBaseURL = "https://api.coinmarketcap.com"
)

// Feed throttles
const (
	GeckoTerminalDelay    = 4050 * time.Millisecond
	GeckoTerminalMaxPages = 10
	CoinMarketCapDelay    = 2 * time.Second
	CoinMarketCapPageSize = 100
)

// Browser-like headers; the listing APIs reject bare clients.
const (
	FeedUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15"
	FeedAccept    = "application/json"
)

// Remote function
const (
	DefaultFunctionName = "FetchOnchainBars"
	DefaultOHLCVLimit   = 30
	// DispatchInterval keeps one dispatch cycle per slot per minute.
	DispatchInterval = 61 * time.Second
)

// Webhook notifier
const (
	NotifierMaxChars     = 1990
	NotifierLinger       = 5 * time.Second
	NotifierDefaultReset = time.Second
)

// Redis keys and channels
const (
	RedisKeyBlockList      = "blocklist"
	PubSubChannelSignals   = "signals:all"
	PubSubChannelSignalsOn = "signals:" // + network
)

// DefaultAWSRegions are used as Lambda slots when AWS_REGIONS is not set.
var DefaultAWSRegions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"ca-central-1", "eu-west-1", "eu-west-2", "eu-west-3",
	"eu-central-1", "eu-north-1", "ap-south-1", "ap-northeast-1",
	"ap-northeast-2", "ap-northeast-3", "ap-southeast-1", "ap-southeast-2",
	"sa-east-1",
}

// AuthHeader carries the shared secret for the admin surface and HTTP slots.
const AuthHeader = "X-Auth-Key"
