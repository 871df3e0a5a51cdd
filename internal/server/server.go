package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/mapview/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed templates/*.html
var templates embed.FS

// Pinger checks a backing dependency for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the map page, its session API, health checks and metrics.
type Server struct {
	log      *slog.Logger
	sessions *session.Manager
	db       Pinger // nil when no cache database is configured
	mapsKey  string
	engine   *gin.Engine
}

// New builds the router. db may be nil.
func New(log *slog.Logger, sessions *session.Manager, gatherer prometheus.Gatherer, db Pinger, mapsKey string) *Server {
	srv := &Server{log: log, sessions: sessions, db: db, mapsKey: mapsKey}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templates, "templates/*.html")))

	engine.GET("/", srv.page)
	engine.GET("/healthz", srv.healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := engine.Group("/api/sessions")
	api.POST("", srv.mount)
	api.GET("/:id", srv.frame)
	api.DELETE("/:id", srv.unmount)
	api.PUT("/:id/address", srv.setAddress)
	api.POST("/:id/geocode", srv.geocode)
	api.POST("/:id/map/click", srv.mapClick)
	api.POST("/:id/marker/dragend", srv.markerDragEnd)
	api.POST("/:id/popup/close", srv.closePopup)
	api.GET("/:id/geojson", srv.geojson)

	srv.engine = engine

	return srv
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on port until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	const (
		readTimeout     = 5 * time.Second
		writeTimeout    = 30 * time.Second
		shutdownTimeout = 10 * time.Second
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "Starting HTTP server", "port", port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	s.log.InfoContext(ctx, "HTTP server stopped")

	return nil
}

func (s *Server) page(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"MapsKey": s.mapsKey})
}

func (s *Server) healthz(c *gin.Context) {
	ctx := c.Request.Context()
	s.log.DebugContext(ctx, "Performing health checks...")

	status, body := http.StatusOK, "OK"
	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			s.log.WarnContext(ctx, "Cache database ping failed", "error", err)
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
	}

	c.String(status, body)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.DebugContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
