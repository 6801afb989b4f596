package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultKeywords is the keyword list used when none is configured.
var DefaultKeywords = []string{
	"Facilities Management",
	"IFM",
	"Integrated FM",
	"Integrated Facilities Management",
	"Integrated Building Services",
	"Building Services",
	"Managing Agent",
}

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Browser    BrowserConfig
	Portal     PortalConfig
	Scraper    ScraperConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Store      StoreConfig
	Classifier ClassifierConfig
	Cache      CacheConfig
	Webhook    WebhookConfig
	Log        LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// AllowedOrigins lists browser origins allowed by CORS.
	AllowedOrigins []string // default: ["http://localhost:5173"]
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all portal traffic.
	Proxy string

	// Stealth masks navigator.webdriver and friends on every session page.
	Stealth bool // default: false

	// AcceptLanguage is sent with every portal request.
	AcceptLanguage string // default: "en-SG,en;q=0.9"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// PortalConfig describes the tender portal.
type PortalConfig struct {
	// URL is the landing page that hosts the search box.
	URL string // default: "https://www.gebiz.gov.sg/"

	// SelectorsFile is an optional YAML file overriding the built-in
	// DOM selectors.
	SelectorsFile string

	// Keywords is the default keyword list for CLI runs.
	Keywords []string
}

// ScraperConfig controls crawl timing and parallelism.
type ScraperConfig struct {
	// WaitTimeout is the default deadline for a single wait.
	WaitTimeout time.Duration // default: 5s

	// ListingTimeout bounds waits for the results listing and the back button.
	ListingTimeout time.Duration // default: 10s

	// StalenessTimeout bounds waits for a page transition to complete.
	StalenessTimeout time.Duration // default: 15s

	// PollInterval is how often a wait re-checks the page.
	PollInterval time.Duration // default: 250ms

	// NavigationRetries is the number of extra attempts for a failed navigation.
	NavigationRetries int // default: 2

	// RetryInitialInterval is the first backoff delay between navigation attempts.
	RetryInitialInterval time.Duration // default: 1s

	// NavigationsPerSecond paces page loads; 0 disables pacing.
	NavigationsPerSecond float64 // default: 2

	// MaxSessions is how many keywords may be crawled at once, each with its own page.
	MaxSessions int // default: 1

	// KeywordTimeout is the hard deadline for one keyword's crawl.
	KeywordTimeout time.Duration // default: 30m
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	// Enabled toggles authentication on protected routes.
	Enabled bool // default: true

	// Secret signs access tokens (HS256).
	Secret string // default: "changeme"

	// TokenTTL is the lifetime of an issued access token.
	TokenTTL time.Duration // default: 60m

	// APIKeys are static keys accepted in place of a token (machine clients).
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per identity.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// StoreConfig controls persistence.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string // default: "tenderscope.db"

	// OutputDir receives the CSV report of each run.
	OutputDir string // default: "output"
}

// ClassifierConfig controls relevance scoring.
type ClassifierConfig struct {
	// Endpoint is the base URL of an external scoring service. When empty
	// the built-in keyword scorer is used.
	Endpoint string

	// APIKey is sent as a bearer token to Endpoint.
	APIKey string

	// Timeout bounds a single remote scoring call.
	Timeout time.Duration // default: 10s

	// Threshold is the minimum score for the keyword scorer to call a title relevant.
	Threshold float64 // default: 0.85

	// Workers caps concurrent scoring calls.
	Workers int // default: 4
}

// CacheConfig controls the relevance score cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached scores.
	MaxEntries int // default: 5000

	// TTL is how long a cached score stays valid.
	TTL time.Duration // default: 24h
}

// WebhookConfig controls job completion notifications.
type WebhookConfig struct {
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration // default: 10s

	// Retries is the number of extra attempts after a failed delivery.
	Retries int // default: 3

	// InitialInterval is the first delay between attempts; later delays grow.
	InitialInterval time.Duration // default: 1s
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           envOr("TENDERSCOPE_HOST", "0.0.0.0"),
			Port:           envIntOr("TENDERSCOPE_PORT", 8080),
			Mode:           envOr("TENDERSCOPE_MODE", "release"),
			AllowedOrigins: envSliceOr("TENDERSCOPE_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("TENDERSCOPE_HEADLESS", true),
			NoSandbox:      envBoolOr("TENDERSCOPE_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("TENDERSCOPE_BROWSER_BIN"),
			Proxy:          os.Getenv("TENDERSCOPE_PROXY"),
			Stealth:        envBoolOr("TENDERSCOPE_STEALTH", false),
			AcceptLanguage: envOr("TENDERSCOPE_ACCEPT_LANGUAGE", "en-SG,en;q=0.9"),
			BlockedResourceTypes: envSliceOr("TENDERSCOPE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Portal: PortalConfig{
			URL:           envOr("TENDERSCOPE_PORTAL_URL", "https://www.gebiz.gov.sg/"),
			SelectorsFile: os.Getenv("TENDERSCOPE_SELECTORS_FILE"),
			Keywords:      envSliceOr("TENDERSCOPE_KEYWORDS", DefaultKeywords),
		},
		Scraper: ScraperConfig{
			WaitTimeout:          envDurationOr("TENDERSCOPE_WAIT_TIMEOUT", 5*time.Second),
			ListingTimeout:       envDurationOr("TENDERSCOPE_LISTING_TIMEOUT", 10*time.Second),
			StalenessTimeout:     envDurationOr("TENDERSCOPE_STALENESS_TIMEOUT", 15*time.Second),
			PollInterval:         envDurationOr("TENDERSCOPE_POLL_INTERVAL", 250*time.Millisecond),
			NavigationRetries:    envIntOr("TENDERSCOPE_NAV_RETRIES", 2),
			RetryInitialInterval: envDurationOr("TENDERSCOPE_RETRY_INTERVAL", time.Second),
			NavigationsPerSecond: envFloatOr("TENDERSCOPE_NAV_RATE", 2),
			MaxSessions:          envIntOr("TENDERSCOPE_MAX_SESSIONS", 1),
			KeywordTimeout:       envDurationOr("TENDERSCOPE_KEYWORD_TIMEOUT", 30*time.Minute),
		},
		Auth: AuthConfig{
			Enabled:  envBoolOr("TENDERSCOPE_AUTH_ENABLED", true),
			Secret:   envOr("TENDERSCOPE_SECRET_KEY", "changeme"),
			TokenTTL: envDurationOr("TENDERSCOPE_TOKEN_TTL", 60*time.Minute),
			APIKeys:  envSliceOr("TENDERSCOPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TENDERSCOPE_RATE_RPS", 5.0),
			Burst:             envIntOr("TENDERSCOPE_RATE_BURST", 10),
		},
		Store: StoreConfig{
			Path:      envOr("TENDERSCOPE_DB_PATH", "tenderscope.db"),
			OutputDir: envOr("TENDERSCOPE_OUTPUT_DIR", "output"),
		},
		Classifier: ClassifierConfig{
			Endpoint:  os.Getenv("TENDERSCOPE_CLASSIFIER_URL"),
			APIKey:    os.Getenv("TENDERSCOPE_CLASSIFIER_KEY"),
			Timeout:   envDurationOr("TENDERSCOPE_CLASSIFIER_TIMEOUT", 10*time.Second),
			Threshold: envFloatOr("TENDERSCOPE_CLASSIFIER_THRESHOLD", 0.85),
			Workers:   envIntOr("TENDERSCOPE_CLASSIFIER_WORKERS", 4),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("TENDERSCOPE_CACHE_MAX_ENTRIES", 5000),
			TTL:        envDurationOr("TENDERSCOPE_CACHE_TTL", 24*time.Hour),
		},
		Webhook: WebhookConfig{
			Timeout:         envDurationOr("TENDERSCOPE_WEBHOOK_TIMEOUT", 10*time.Second),
			Retries:         envIntOr("TENDERSCOPE_WEBHOOK_RETRIES", 3),
			InitialInterval: envDurationOr("TENDERSCOPE_WEBHOOK_INTERVAL", time.Second),
		},
		Log: LogConfig{
			Level:  envOr("TENDERSCOPE_LOG_LEVEL", "info"),
			Format: envOr("TENDERSCOPE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
