package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// CheckFunc probes one dependency.
type CheckFunc = func(ctx context.Context) error

type HealthHandler struct {
	appName   string
	env       string
	startedAt time.Time
	checks    map[string]CheckFunc
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(appName, env string, startedAt time.Time, checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{
		appName:   appName,
		env:       env,
		startedAt: startedAt,
		checks:    checks,
	}
}

// Check probes every dependency concurrently.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		statuses = make(map[string]dependencyStatus, len(h.checks))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range h.checks {
		g.Go(func() error {
			status := dependencyStatus{OK: true}
			if err := check(gctx); err != nil {
				status = dependencyStatus{OK: false, Message: err.Error()}
			}
			mu.Lock()
			statuses[name] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	statusCode := http.StatusOK
	for _, s := range statuses {
		if !s.OK {
			statusCode = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(statusCode, gin.H{
		"app":          h.appName,
		"env":          h.env,
		"uptime_sec":   int(time.Since(h.startedAt).Seconds()),
		"dependencies": statuses,
	})
}
