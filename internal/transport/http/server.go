// Package httpapi exposes the read-only inspection surface: the latest
// snapshot, the rendered sensor states, recent cycle records and an
// account-value chart.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hypersense/internal/coordinator"
	"hypersense/internal/logger"
)

// SnapshotSource is the slice of the coordinator the server reads from.
type SnapshotSource interface {
	Published() *coordinator.Published
	Cycles() []coordinator.CycleRecord
}

type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(addr string, source SnapshotSource) (*Server, error) {
	if source == nil {
		return nil, errors.New("http server requires a snapshot source")
	}
	if addr == "" {
		addr = ":9944"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{source: source}
	api := router.Group("/api")
	{
		api.GET("/snapshot", h.handleSnapshot)
		api.GET("/sensors", h.handleSensors)
		api.GET("/cycles", h.handleCycles)
	}
	router.GET("/chart/account-value", h.handleAccountValueChart)

	return &Server{addr: addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler returns the underlying handler. Intended for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until the context ends or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
