// Package api exposes crawl jobs over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/notecrawl/api/handler"
	"github.com/use-agent/notecrawl/api/middleware"
	"github.com/use-agent/notecrawl/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint stays outside auth so monitoring probes always work.
func NewRouter(cfg config.Config, crawls *handler.Crawls, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(crawls, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/crawl", crawls.Post())
	protected.GET("/crawl/:id", crawls.Get())

	return r
}
