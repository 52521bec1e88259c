package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping() error
}

// SystemHandler exposes operational endpoints
type SystemHandler struct {
	BaseHandler
	db      Pinger
	appName string
	started time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(db Pinger, appName string) *SystemHandler {
	return &SystemHandler{
		db:      db,
		appName: appName,
		started: time.Now(),
	}
}

// Health reports service liveness and database reachability
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	code := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	c.JSON(code, gin.H{
		"status":   status,
		"service":  h.appName,
		"database": dbStatus,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	})
}
