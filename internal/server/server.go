// Package server exposes the import stages over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dataimport/internal/importer"
	"dataimport/internal/logging"
	"dataimport/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 32 << 20

// Config configures the HTTP server.
type Config struct {
	Addr         string
	MaxBodyBytes int64
	SampleSize   int

	// Sink, when Kind is set, receives records built by /import.
	Sink storage.Config

	// Debug keeps gin in debug mode.
	Debug bool
}

// Server serves the import API.
type Server struct {
	router *gin.Engine
	svc    *importer.Service
	cfg    Config
	log    *logrus.Logger
}

// New builds a Server around svc.
func New(svc *importer.Service, cfg Config) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{
		router: gin.New(),
		svc:    svc,
		cfg:    cfg,
		log:    logging.Logger(),
	}
	s.router.Use(gin.Recovery(), s.accessLog(), s.limitBody())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	{
		api.POST("/parse", s.Parse)
		api.POST("/map", s.Map)
		api.POST("/validate", s.Validate)
		api.POST("/import", s.Import)
		api.POST("/upload", s.Upload)
		api.GET("/schemas", s.ListSchemas)
		api.GET("/schemas/:entity", s.GetSchema)
	}
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("http: listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("http: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).Truncate(time.Microsecond).String(),
		}).Debug("http: request")
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxBodyBytes)
		c.Next()
	}
}
