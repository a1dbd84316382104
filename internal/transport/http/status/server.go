package statushttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sibyl/internal/agent"
	"sibyl/internal/logger"
	"sibyl/internal/track"
)

// RunStatus exposes the pipeline's most recent run and readiness state.
type RunStatus interface {
	LastSummary() (agent.RunSummary, bool)
	Health() agent.HealthStatus
}

// RunHistory lists persisted run summaries.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]agent.RunSummary, error)
}

// HealthProber performs a live readiness check against the ledger.
type HealthProber interface {
	Check(ctx context.Context) agent.HealthStatus
}

// Server 提供只读的状态查询接口（健康、交易跟踪、运行历史）和一个手动
// 触发端点。
type Server struct {
	addr   string
	router *gin.Engine
	api    *apiRouter
}

// ServerConfig 描述状态 HTTP 服务依赖。
type ServerConfig struct {
	Addr    string
	Status  RunStatus
	Records *track.Store
	History RunHistory
	// Prober, when set, makes /api/status/health probe the ledger on demand
	// instead of echoing the last run's gate result.
	Prober HealthProber
	// Trigger starts a run out of schedule. The run lock makes overlapping
	// triggers a no-op, so exposing this is safe.
	Trigger func(ctx context.Context)
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Status == nil || cfg.Records == nil {
		return nil, errors.New("status http server requires status provider and record store")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9880"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r := &apiRouter{cfg: cfg}
	r.register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router, api: r}, nil
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.api.setBaseContext(ctx)
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

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}
