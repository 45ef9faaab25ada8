package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apihttp "github.com/GriffinCanCode/evalmachine/internal/api/http"
	"github.com/GriffinCanCode/evalmachine/internal/api/middleware"
	"github.com/GriffinCanCode/evalmachine/internal/api/ws"
	"github.com/GriffinCanCode/evalmachine/internal/domain/runner"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/config"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/logging"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/evalmachine/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/evalmachine/internal/script/env"
	"github.com/GriffinCanCode/evalmachine/internal/script/evalmachine"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	http    *http.Server
	runner  *runner.Runner
	pool    *env.Pool
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// Option configures a Server.
type Option func(*options)

type options struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// WithRegistry registers metrics with reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry, o.gatherer = reg, reg
	}
}

func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{registry: prometheus.DefaultRegisterer, gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.FromLevel(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing evaluation server",
		zap.String("port", cfg.Server.Port),
		zap.Int("pool_size", cfg.Engine.PoolSize),
		zap.Int("max_call_stack", cfg.Engine.MaxCallStack),
	)

	metrics := monitoring.NewMetrics(o.registry)
	tracer := tracing.New("evalmachine", logger.Named("trace").Logger)

	engineOpts := []evalmachine.Option{
		evalmachine.WithObserver(metrics.Observer()),
		evalmachine.WithRecorder(metrics),
		evalmachine.WithDefaultFilename(cfg.Engine.DefaultFilename),
		evalmachine.WithMaxCallStackSize(cfg.Engine.MaxCallStack),
	}
	diag, err := zap.NewStdLogAt(logger.Named("diagnostics").Logger, zapcore.WarnLevel)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts, evalmachine.WithDiagnostics(diag.Writer()))

	var pool *env.Pool
	if cfg.Engine.PoolSize > 0 {
		pool = env.NewPool(cfg.Engine.PoolSize, cfg.Engine.MaxCallStack)
		engineOpts = append(engineOpts, evalmachine.WithPool(pool))
	}

	r := runner.New(logger.Named("runner").Logger, engineOpts...).
		WithMetrics(metrics).
		WithDisplayErrors(cfg.Engine.DisplayErrors)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.Logger(logger.Named("http").Logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond, rl.Burst = cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	apihttp.NewHandlers(r, tracer, metrics).Register(router)
	router.GET("/contexts/:id/repl", ws.NewHandler(r, metrics, logger.Named("repl").Logger).HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(o.gatherer, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		runner:  r,
		pool:    pool,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// Runner returns the runner behind the API.
func (s *Server) Runner() *runner.Runner { return s.runner }

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Close releases held contexts, the environment pool and the tracer.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.runner.Close(); err != nil {
		s.logger.Error("Failed to close runner", zap.Error(err))
		errs = append(errs, err)
	}
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("Failed to close environment pool", zap.Error(err))
			errs = append(errs, err)
		}
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
