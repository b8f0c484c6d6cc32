package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"greencheck/config"
	"greencheck/internal/domain"
	"greencheck/internal/observability"
	"greencheck/internal/usecase"
)

const maxBodyBytes = 20 << 20

type Detector interface {
	Detect(ctx context.Context, text string) (usecase.DetectResponse, error)
	Recent(ctx context.Context, limit int) ([]domain.Detection, error)
}

type Ingester interface {
	Ingest(ctx context.Context, content, filename, sourceTag string) (domain.IngestResult, error)
}

type Adapter interface {
	Adapt(ctx context.Context, text string) (domain.Adaptation, error)
}

type Seeder interface {
	Seed(ctx context.Context) (usecase.SeedResult, error)
}

// Options wires the use cases behind the HTTP API.
type Options struct {
	Detector    Detector
	Ingester    Ingester
	Adapter     Adapter
	Seeder      Seeder
	SourceTag   string
	StoreDriver string
	LLMEnabled  bool
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

type Server struct {
	cfg     config.ServerConfig
	opts    Options
	router  *gin.Engine
	logger  *zap.Logger
	metrics *observability.Metrics
}

var registerValidators sync.Once

func New(cfg config.ServerConfig, opts Options) *Server {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", notBlank)
		}
	})

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	s := &Server{
		cfg:     cfg,
		opts:    opts,
		router:  router,
		logger:  logger,
		metrics: opts.Metrics,
	}

	router.Use(gin.Recovery(), s.requestLogger(), s.cors())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.router.POST("/detect", s.detect)
	s.router.GET("/detections", s.detections)
	s.router.POST("/process-document", s.processDocument)
	s.router.POST("/adapt", s.adapt)
	s.router.POST("/seed", s.seed)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := time.Duration(s.cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("server shutting down")
	return srv.Shutdown(shutdownCtx)
}
