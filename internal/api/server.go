// Package api serves the catalog and enrichment HTTP JSON API.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"catalog-enrichment/internal/common/config"
	"catalog-enrichment/internal/common/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo   *echo.Echo
	config config.ServerConfig
	logger logger.Logger
}

func NewServer(cfg config.ServerConfig, deps Dependencies, log logger.Logger) *Server {
	log = log.WithFields(map[string]interface{}{"component": "api"})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestObserver(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
	}))
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	g := e.Group(strings.TrimSuffix(cfg.BasePath, "/"))

	products := &productHandler{
		products: deps.Products,
		attrs:    deps.Attributes,
		search:   deps.Search,
		logger:   log,
	}
	g.GET("/products", products.list)
	g.GET("/products/:id", products.get)
	g.POST("/products", products.create)
	g.PUT("/products/:id", products.update)
	g.DELETE("/products/:id", products.delete)

	attrs := &attributeHandler{attrs: deps.Attributes, logger: log}
	g.GET("/attributes", attrs.list)
	g.GET("/attributes/types", attrs.types)
	g.GET("/attributes/:id", attrs.get)
	g.POST("/attributes", attrs.create)
	g.PUT("/attributes/:id", attrs.update)
	g.DELETE("/attributes/:id", attrs.delete)

	enrichment := &enrichmentHandler{jobs: deps.Enrichment, logger: log}
	g.POST("/enrichment/products", enrichment.start)
	g.GET("/enrichment/status/:id", enrichment.status)

	return &Server{echo: e, config: cfg, logger: log}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving the API until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("API server listening", map[string]interface{}{
		"address":  s.config.Address(),
		"basePath": s.config.BasePath,
	})
	if err := s.echo.Start(s.config.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
