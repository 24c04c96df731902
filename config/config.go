package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration. It is loaded once at startup
// and passed by value; nothing mutates it afterwards.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Crawl     CrawlConfig
	Session   SessionConfig
	Export    ExportConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// BrowserBin overrides the Chromium/Edge binary path.
	BrowserBin string

	// Headless controls whether the browser runs headless. Captchas are
	// common during a crawl, so the default keeps the window visible.
	Headless bool // default: false

	// Language is the browser UI / Accept-Language value.
	Language string // default: "en"

	// LoadMode is the page-load strategy: "normal" waits for the load event,
	// "eager" waits for the DOM to settle, "none" does not wait.
	LoadMode string // default: "normal"

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Proxy is an optional proxy URL for the browser.
	Proxy string

	// Stealth injects go-rod/stealth evasions into every tab.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// NavigationTimeout is the max time for a single navigation.
	NavigationTimeout time.Duration // default: 30s
}

// CrawlConfig controls the scan/scroll loop.
type CrawlConfig struct {
	// ScrollTimes is the number of scan-and-scroll iterations.
	ScrollTimes int // default: 50

	// LikeFilter skips notes below MinLikes without opening them.
	LikeFilter bool // default: true
	MinLikes   int  // default: 50

	// Comments enables top-level comment collection.
	Comments bool // default: false

	// LogItems logs per-item and per-page failures.
	LogItems bool // default: false

	// RenderWait is the pause after opening or closing a note.
	RenderWait time.Duration // default: 3s

	// SearchWait is the pause after loading the search results page.
	SearchWait time.Duration // default: 5s

	// ScrollDelayMin / ScrollDelayMax bound the random pause before a scroll.
	ScrollDelayMin time.Duration // default: 500ms
	ScrollDelayMax time.Duration // default: 1500ms

	// DetailRate is the sustained rate of note opens per second.
	DetailRate float64 // default: 0.5
	DetailBurst int    // default: 1

	// SelectorsFile is an optional YAML file overriding extractor selectors.
	SelectorsFile string
}

// SessionConfig controls login and cookie persistence.
type SessionConfig struct {
	// CookiePath is where login cookies are stored.
	CookiePath string // default: "~/.notecrawl/cookies.json"

	// LoginTimeout bounds the wait for manual login confirmation.
	LoginTimeout time.Duration // default: 5m

	// LoginConfirm is "enter" (press Enter on stdin) or "selector" (poll
	// for the logged-in marker).
	LoginConfirm string // default: "enter"
}

// ExportConfig controls spreadsheet output.
type ExportConfig struct {
	// Dir is the output directory.
	Dir string // default: "."
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the per-run note detail cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached details. 0 disables it.
	MaxEntries int // default: 2000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from a .env file (if present) and environment
// variables, with sane defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Server: ServerConfig{
			Host: envOr("NOTECRAWL_HOST", "127.0.0.1"),
			Port: envIntOr("NOTECRAWL_PORT", 8080),
			Mode: envOr("NOTECRAWL_MODE", "release"),
		},
		Browser: BrowserConfig{
			BrowserBin: os.Getenv("NOTECRAWL_BROWSER_BIN"),
			Headless:   envBoolOr("NOTECRAWL_HEADLESS", false),
			Language:   envOr("NOTECRAWL_LANGUAGE", "en"),
			LoadMode:   envOr("NOTECRAWL_LOAD_MODE", "normal"),
			NoSandbox:  envBoolOr("NOTECRAWL_NO_SANDBOX", false),
			Proxy:      os.Getenv("NOTECRAWL_PROXY"),
			Stealth:    envBoolOr("NOTECRAWL_STEALTH", true),
			BlockedResourceTypes: envSliceOr("NOTECRAWL_BLOCKED_RESOURCES", []string{
				"Font", "Media",
			}),
			NavigationTimeout: envDurationOr("NOTECRAWL_NAV_TIMEOUT", 30*time.Second),
		},
		Crawl: CrawlConfig{
			ScrollTimes:    envIntOr("NOTECRAWL_SCROLL_TIMES", 50),
			LikeFilter:     envBoolOr("NOTECRAWL_LIKE_FILTER", true),
			MinLikes:       envIntOr("NOTECRAWL_MIN_LIKES", 50),
			Comments:       envBoolOr("NOTECRAWL_COMMENTS", false),
			LogItems:       envBoolOr("NOTECRAWL_LOG_ITEMS", false),
			RenderWait:     envDurationOr("NOTECRAWL_RENDER_WAIT", 3*time.Second),
			SearchWait:     envDurationOr("NOTECRAWL_SEARCH_WAIT", 5*time.Second),
			ScrollDelayMin: envDurationOr("NOTECRAWL_SCROLL_DELAY_MIN", 500*time.Millisecond),
			ScrollDelayMax: envDurationOr("NOTECRAWL_SCROLL_DELAY_MAX", 1500*time.Millisecond),
			DetailRate:     envFloatOr("NOTECRAWL_DETAIL_RATE", 0.5),
			DetailBurst:    envIntOr("NOTECRAWL_DETAIL_BURST", 1),
			SelectorsFile:  os.Getenv("NOTECRAWL_SELECTORS_FILE"),
		},
		Session: SessionConfig{
			CookiePath:   envOr("NOTECRAWL_COOKIE_PATH", defaultCookiePath()),
			LoginTimeout: envDurationOr("NOTECRAWL_LOGIN_TIMEOUT", 5*time.Minute),
			LoginConfirm: envOr("NOTECRAWL_LOGIN_CONFIRM", "enter"),
		},
		Export: ExportConfig{
			Dir: envOr("NOTECRAWL_OUTPUT_DIR", "."),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("NOTECRAWL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("NOTECRAWL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("NOTECRAWL_RATE_RPS", 1.0),
			Burst:             envIntOr("NOTECRAWL_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("NOTECRAWL_CACHE_MAX_ENTRIES", 2000),
		},
		Log: LogConfig{
			Level:  envOr("NOTECRAWL_LOG_LEVEL", "info"),
			Format: envOr("NOTECRAWL_LOG_FORMAT", "text"),
		},
	}
}

func defaultCookiePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".notecrawl-cookies.json"
	}
	return filepath.Join(home, ".notecrawl", "cookies.json")
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
