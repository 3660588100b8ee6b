// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"

	"github.com/tamzrod/battmon/internal/logging"
	"github.com/tamzrod/battmon/internal/loop"
	"github.com/tamzrod/battmon/internal/provision"
	"github.com/tamzrod/battmon/internal/registry"
	"github.com/tamzrod/battmon/internal/system"
)

// DefaultRebootGrace is the delay between the /reboot reply and the restart.
const DefaultRebootGrace = 500 * time.Millisecond

// rebootPollInterval paces request servicing during the reboot grace.
const rebootPollInterval = 10 * time.Millisecond

// maxBodyBytes bounds request bodies; both JSON bodies are tiny.
const maxBodyBytes = 1024

// Deps are the components the routes drive. Registry and Provisioner are
// only touched from jobs running on Loop.
type Deps struct {
	Loop        *loop.Loop
	Registry    *registry.Registry
	Provisioner *provision.Provisioner
	Restarter   system.Restarter
	Ring        *logging.Ring
	Metrics     http.Handler // optional

	Clock       clockwork.Clock
	RebootGrace time.Duration
	Log         *slog.Logger
}

// Server is the configuration HTTP surface.
type Server struct {
	deps   Deps
	engine *gin.Engine
}

// New builds the router.
func New(deps Deps) (*Server, error) {
	if deps.Loop == nil || deps.Registry == nil || deps.Provisioner == nil || deps.Restarter == nil {
		return nil, errors.New("api: loop, registry, provisioner and restarter are required")
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.RebootGrace <= 0 {
		deps.RebootGrace = DefaultRebootGrace
	}
	if deps.Ring == nil {
		deps.Ring = logging.NewRing(logging.DefaultRingLines)
	}
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}

	s := &Server{deps: deps}
	s.engine = s.routes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.deps.Log))

	r.GET("/settings", s.getSettings)
	r.POST("/settings", s.postSettings)
	r.POST("/wifi_config", s.postWifiConfig)
	r.GET("/sta_ip", s.getStaIP)
	r.POST("/reboot", s.postReboot)
	r.GET("/serial_log", s.getSerialLog)
	if s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found")
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.deps.Log.Info("http listening", slog.String("listen", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api: listen %s: %w", addr, err)
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	}
}

// requestLogger logs one line per request at debug.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
