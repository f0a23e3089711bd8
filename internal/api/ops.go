package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"catalog-enrichment/internal/common/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 3 * time.Second

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// OpsServer serves /health, /ready and /metrics outside the API base path.
type OpsServer struct {
	echo   *echo.Echo
	addr   string
	checks map[string]HealthCheck
	logger logger.Logger
}

func NewOpsServer(port int, checks map[string]HealthCheck, log logger.Logger) *OpsServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &OpsServer{
		echo:   e,
		addr:   fmt.Sprintf(":%d", port),
		checks: checks,
		logger: log.WithFields(map[string]interface{}{"component": "ops"}),
	}
	e.GET("/health", s.health)
	e.GET("/ready", s.ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

func (s *OpsServer) Handler() http.Handler {
	return s.echo
}

func (s *OpsServer) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *OpsServer) ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
		s.logger.Warn("readiness check failed", map[string]interface{}{"checks": results})
	}
	return c.JSON(status, map[string]interface{}{
		"status": state,
		"checks": results,
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *OpsServer) Start() error {
	s.logger.Info("Health/Metrics server listening", map[string]interface{}{"address": s.addr})
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
