// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ctrad/prescreen/internal/config"
	"github.com/ctrad/prescreen/internal/health"
	"github.com/ctrad/prescreen/internal/idgen"
	"github.com/ctrad/prescreen/internal/logging"
	"github.com/ctrad/prescreen/internal/metrics"
	"github.com/ctrad/prescreen/internal/model"
	"github.com/ctrad/prescreen/internal/ratelimit"
	"github.com/ctrad/prescreen/internal/scoring"
	"github.com/ctrad/prescreen/internal/security"
	"github.com/ctrad/prescreen/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	scorer  *scoring.Aggregator
	checks  *health.Registry
	router  *gin.Engine
	httpSrv *http.Server
	logger  *slog.Logger
	limiter *ratelimit.Limiter

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a new server instance
func New(cfg *config.Config, scorer *scoring.Aggregator, checks *health.Registry, opts ...Option) (*Server, error) {
	if scorer == nil {
		return nil, fmt.Errorf("server requires a scoring aggregator")
	}
	if checks == nil {
		checks = health.NewRegistry()
	}

	s := &Server{
		cfg:    cfg,
		scorer: scorer,
		checks: checks,
		logger: logging.New(cfg.LogLevel, "json"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers and CORS
	s.router.Use(security.HeadersMiddleware())
	s.router.Use(security.CORSMiddleware(s.cfg.CORSAllowedOrigins))

	// Request body size cap
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Per-client rate limiting
	if s.cfg.RateLimitRPM > 0 {
		limCfg := ratelimit.DefaultConfig()
		limCfg.RequestsPerMinute = s.cfg.RateLimitRPM
		s.limiter = ratelimit.New(limCfg)
		s.router.Use(s.limiter.Middleware())
	}

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.RequestID()
		}

		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	s.router.GET("/api", s.infoHandler)

	v1 := s.router.Group("/v1")
	v1.POST("/score", s.scoreHandler)
}

// -----------------------------------------------------------------------------
// Handlers
// -----------------------------------------------------------------------------

// scoreRequest is the wire shape of a scoring call. Only the endpoint
// addresses are required; everything else is coerced to a safe default so
// a partial request still yields a verdict.
type scoreRequest struct {
	Chain         string    `json:"chain"`
	FromAddr      string    `json:"from_addr" binding:"required"`
	ToAddr        string    `json:"to_addr" binding:"required"`
	TokenSymbol   string    `json:"token_symbol"`
	TokenContract string    `json:"token_contract"`
	Amount        float64   `json:"amount"`
	AmountUSD     float64   `json:"amount_usd"`
	Timestamp     time.Time `json:"timestamp"`

	// Optional contract analysis supplied by the caller; the chain
	// scanner cannot provide tax or ownership facts.
	SellTaxPct     *float64 `json:"sell_tax_pct"`
	BuyTaxPct      *float64 `json:"buy_tax_pct"`
	OwnerRenounced *bool    `json:"owner_renounced"`
}

func (s *Server) scoreHandler(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	if errs := validation.Validate(
		validation.ValidAddress("from_addr", req.FromAddr),
		validation.ValidAddress("to_addr", req.ToAddr),
		validation.ValidAddress("token_contract", req.TokenContract),
		validation.NonNegative("amount", req.Amount),
		validation.NonNegative("amount_usd", req.AmountUSD),
	); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	symbol := validation.SanitizeString(req.TokenSymbol, validation.MaxSymbolLength)

	tx := model.NewTransaction(req.Chain, req.FromAddr, req.ToAddr,
		symbol, req.TokenContract, req.Amount, req.AmountUSD, req.Timestamp)

	var cf model.ContractFacts
	if req.SellTaxPct != nil {
		cf.SellTaxPct = model.KnownFloat(*req.SellTaxPct)
	}
	if req.BuyTaxPct != nil {
		cf.BuyTaxPct = model.KnownFloat(*req.BuyTaxPct)
	}
	if req.OwnerRenounced != nil {
		cf.OwnerRenounced = model.Bool(*req.OwnerRenounced)
	}

	verdict := s.scorer.ScoreWithContract(c.Request.Context(), tx, cf)
	c.JSON(http.StatusOK, verdict)
}

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	Checks    []health.Status `json:"checks,omitempty"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.checks.CheckAll(ctx)

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    statuses,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "Prescreen",
		"description": "Pre-transaction risk scoring for blockchain transfers",
		"version":     "0.1.0",
		"chains":      []string{"ethereum", "bsc", "polygon"},
	})
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "port", s.cfg.Port)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	if s.limiter != nil {
		s.limiter.Stop()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
