package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/notecrawl/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health. Status is "busy" while a
// crawl holds the browser.
func Health(crawls *Crawls, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		busy := crawls.Busy()
		status := "healthy"
		if busy {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Busy:    busy,
			Version: Version,
		})
	}
}
