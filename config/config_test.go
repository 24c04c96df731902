package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Crawl.ScrollTimes != 50 {
		t.Errorf("ScrollTimes = %d, want 50", cfg.Crawl.ScrollTimes)
	}
	if !cfg.Crawl.LikeFilter || cfg.Crawl.MinLikes != 50 {
		t.Errorf("like filter = %v/%d, want true/50", cfg.Crawl.LikeFilter, cfg.Crawl.MinLikes)
	}
	if cfg.Crawl.Comments {
		t.Error("comment collection should be off by default")
	}
	if cfg.Browser.Headless {
		t.Error("browser should be headed by default")
	}
	if cfg.Browser.LoadMode != "normal" {
		t.Errorf("LoadMode = %q, want normal", cfg.Browser.LoadMode)
	}
	if cfg.Crawl.ScrollDelayMin != 500*time.Millisecond || cfg.Crawl.ScrollDelayMax != 1500*time.Millisecond {
		t.Errorf("scroll delay = [%v, %v]", cfg.Crawl.ScrollDelayMin, cfg.Crawl.ScrollDelayMax)
	}
	if cfg.Session.CookiePath == "" {
		t.Error("cookie path should have a default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NOTECRAWL_SCROLL_TIMES", "7")
	t.Setenv("NOTECRAWL_LIKE_FILTER", "false")
	t.Setenv("NOTECRAWL_MIN_LIKES", "120")
	t.Setenv("NOTECRAWL_RENDER_WAIT", "750ms")
	t.Setenv("NOTECRAWL_BLOCKED_RESOURCES", "Image, Font ,")
	t.Setenv("NOTECRAWL_API_KEYS", "a,b")

	cfg := Load()

	if cfg.Crawl.ScrollTimes != 7 {
		t.Errorf("ScrollTimes = %d, want 7", cfg.Crawl.ScrollTimes)
	}
	if cfg.Crawl.LikeFilter {
		t.Error("LikeFilter should be disabled")
	}
	if cfg.Crawl.MinLikes != 120 {
		t.Errorf("MinLikes = %d, want 120", cfg.Crawl.MinLikes)
	}
	if cfg.Crawl.RenderWait != 750*time.Millisecond {
		t.Errorf("RenderWait = %v", cfg.Crawl.RenderWait)
	}
	if got := cfg.Browser.BlockedResourceTypes; len(got) != 2 || got[0] != "Image" || got[1] != "Font" {
		t.Errorf("BlockedResourceTypes = %v", got)
	}
	if len(cfg.Auth.APIKeys) != 2 {
		t.Errorf("APIKeys = %v", cfg.Auth.APIKeys)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("NOTECRAWL_SCROLL_TIMES", "many")
	t.Setenv("NOTECRAWL_HEADLESS", "sometimes")
	t.Setenv("NOTECRAWL_DETAIL_RATE", "fast")

	cfg := Load()

	if cfg.Crawl.ScrollTimes != 50 {
		t.Errorf("ScrollTimes = %d, want fallback 50", cfg.Crawl.ScrollTimes)
	}
	if cfg.Browser.Headless {
		t.Error("Headless should fall back to false")
	}
	if cfg.Crawl.DetailRate != 0.5 {
		t.Errorf("DetailRate = %v, want fallback 0.5", cfg.Crawl.DetailRate)
	}
}
