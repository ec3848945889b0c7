// Package httpapi exposes the caches and the Synthesis Façade over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"transit-synth/internal/cache"
	"transit-synth/internal/domain"
	"transit-synth/internal/observability"
	"transit-synth/internal/orchestrator"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 30 * time.Second

// Server is the gin HTTP server.
type Server struct {
	orch     *orchestrator.Orchestrator
	sky      *cache.DailySky
	transits *cache.UserTransits
	hub      *Hub

	engine    *gin.Engine
	logger    *log.Logger
	clock     func() time.Time
	startedAt time.Time
}

// Options for creating Server.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Sky          *cache.DailySky
	Transits     *cache.UserTransits
	Logger       *log.Logger
	Debug        bool // gin debug mode and request logging
	Clock        func() time.Time
}

// New creates a new Server and subscribes its feed to sky refreshes.
func New(opts Options) *Server {
	if !opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}

	s := &Server{
		orch:     opts.Orchestrator,
		sky:      opts.Sky,
		transits: opts.Transits,
		hub:      NewHub(opts.Logger),
		engine:   gin.New(),
		logger:   opts.Logger,
		clock:    opts.Clock,
	}
	s.startedAt = s.clock()

	s.engine.Use(gin.Recovery())
	if opts.Debug {
		s.engine.Use(gin.LoggerWithWriter(opts.Logger.Writer()))
	}
	s.engine.Use(cors)

	if s.sky != nil {
		s.sky.OnRefresh(s.hub.Publish)
	}

	s.setupRoutes()
	return s
}

// cors allows local dashboards to call the API.
func cors(c *gin.Context) {
	origin := c.Request.Header.Get("Origin")
	if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
	}
	c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	c.Next()
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api/v1")
	api.GET("/daily-sky", s.getDailySky)
	api.POST("/transits", s.postTransits)
	api.POST("/dashboard", s.postDashboard)
	api.GET("/health", s.getHealth)

	s.engine.GET("/metrics", gin.WrapH(observability.Handler()))
	s.engine.GET("/ws/daily-sky", s.handleFeed)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Hub returns the daily sky feed hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// Close feed connections first; Shutdown does not wait for hijacked conns.
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Println("HTTP server stopped")
	return nil
}

type skyResponse struct {
	Data       *domain.DailySkyData `json:"data"`
	Degraded   bool                 `json:"degraded"`
	Stale      bool                 `json:"stale"`
	ComputedAt *time.Time           `json:"computed_at"`
	ExpiresAt  *time.Time           `json:"expires_at"`
}

func (s *Server) getDailySky(c *gin.Context) {
	if s.sky == nil {
		s.writeError(c, fmt.Errorf("daily sky: %w", domain.ErrUpstreamUnavailable))
		return
	}

	res, err := s.sky.Get(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, skyResponse{
		Data:       &res.Value,
		Degraded:   res.Degraded,
		Stale:      res.Stale,
		ComputedAt: &res.ComputedAt,
		ExpiresAt:  &res.ExpiresAt,
	})
}

type transitsResponse struct {
	Data     *domain.TransitResult `json:"data"`
	Degraded bool                  `json:"degraded"`
	Stale    bool                  `json:"stale"`
}

func (s *Server) postTransits(c *gin.Context) {
	var birth domain.BirthData
	if err := c.ShouldBindJSON(&birth); err != nil {
		writeBadRequest(c, err)
		return
	}
	if s.transits == nil {
		s.writeError(c, fmt.Errorf("user transits: %w", domain.ErrUpstreamUnavailable))
		return
	}

	res, err := s.transits.Get(c.Request.Context(), birth)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, transitsResponse{
		Data:     &res.Value,
		Degraded: res.Degraded,
		Stale:    res.Stale,
	})
}

// DashboardRequest is the body of POST /api/v1/dashboard.
type DashboardRequest struct {
	Chart *domain.NatalChart   `json:"chart"`
	Sky   *domain.DailySkyData `json:"sky,omitempty"`
}

func (s *Server) postDashboard(c *gin.Context) {
	var req DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	env, err := s.orch.Dashboard(c.Request.Context(), req.Chart, req.Sky)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

func (s *Server) getHealth(c *gin.Context) {
	resp := gin.H{
		"status":         "ok",
		"connections":    s.hub.Count(),
		"uptime_seconds": int64(s.clock().Sub(s.startedAt).Seconds()),
		"latest_sky":     nil,
	}
	if msg := s.hub.Latest(); msg != nil {
		resp["latest_sky"] = msg.ComputedAt
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleFeed(c *gin.Context) {
	if s.hub.Latest() == nil && s.sky != nil {
		if e := s.sky.Peek(c.Request.Context()); e != nil {
			s.hub.Prime(*e)
		}
	}
	s.hub.ServeWS(c)
}
