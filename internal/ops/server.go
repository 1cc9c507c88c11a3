// Package ops serves liveness and readiness endpoints next to the bot.
package ops

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/m3rciful/reviewbot/core/buildinfo"
	"github.com/m3rciful/reviewbot/core/logger"
)

const (
	component    = "ops"
	checkTimeout = 2 * time.Second
)

// Check reports whether a dependency is ready.
type Check func(ctx context.Context) error

// Options configures the ops server.
type Options struct {
	// Listen is the bind address; empty disables the server.
	Listen string
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]Check
	// SendErrors reports failed outbound replies, if known.
	SendErrors func() uint64
}

// Server is a small gin HTTP server for health probes.
type Server struct {
	opts   Options
	engine *gin.Engine
	srv    *http.Server
	done   chan struct{}
}

// New builds the server. Routes are ready even when Listen is empty so the
// handler can be tested with httptest.
func New(opts Options) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{opts: opts, engine: engine}
	engine.GET("/healthz", s.healthz)
	engine.GET("/readyz", s.readyz)
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.engine }

// Enabled reports whether Start will bind a socket.
func (s *Server) Enabled() bool { return s.opts.Listen != "" }

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	if !s.Enabled() {
		logger.Debug(ctx, component, "ops.disabled", slog.String("status", "skip"))
		return nil
	}
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), component, "ops.serve_failed",
				slog.String("err", err.Error()),
			)
		}
	}()
	logger.Info(ctx, component, "ops.listen",
		slog.String("status", "ok"),
		slog.String("addr", ln.Addr().String()),
	)
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	<-s.done
	s.srv = nil
	return err
}

func (s *Server) healthz(c *gin.Context) {
	info := buildinfo.Current()
	var sendErrors uint64
	if s.opts.SendErrors != nil {
		sendErrors = s.opts.SendErrors()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"version":     info.Version,
		"commit":      info.Commit,
		"send_errors": sendErrors,
	})
}

func (s *Server) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(s.opts.Checks))
	for name := range s.opts.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := gin.H{}
	for _, name := range names {
		if err := s.opts.Checks[name](ctx); err != nil {
			failed[name] = logger.RedactSecrets(err.Error())
		}
	}
	if len(failed) > 0 {
		logger.Warn(ctx, component, "ops.not_ready",
			slog.String("status", "fail"),
			slog.Int("failed", len(failed)),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": len(names)})
}
