// Package server exposes the journal over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/sprout/internal/auth"
	"github.com/julianstephens/sprout/internal/config"
	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/journal"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/prompts"
	"github.com/julianstephens/sprout/internal/validation"
)

// Deps are the services the API is built on
type Deps struct {
	Accounts *auth.Accounts
	Sessions *auth.Sessions
	Journal  *journal.Service
}

type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	engine *gin.Engine

	mu     sync.Mutex
	picker *prompts.Picker
}

var registerOnce sync.Once

func New(cfg config.ServerConfig, deps Deps) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := validation.Register(v); err != nil {
				logger.Warn("Failed to register request validators", "error", err)
			}
		}
	})

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		picker: prompts.NewPicker(time.Now().UnixNano()),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	// cors panics without origins; same-origin clients need no middleware
	if len(cfg.Cors.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Cors.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	} else {
		logger.Warn("No CORS origins configured, cross-origin requests will be rejected by browsers")
	}
	s.setupRoutes(router)
	s.engine = router
	return s
}

func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/healthz", s.health)

	api := router.Group("/api")
	{
		api.POST("/accounts", s.createAccount)
		api.POST("/sessions", s.createSession)
		api.GET("/challenge", s.challenge)
		api.GET("/quote", s.quote)

		authed := api.Group("", s.requireSession())
		{
			authed.GET("/me", s.me)
			authed.GET("/entries", s.listEntries)
			authed.POST("/entries", s.addEntry)
			authed.GET("/entries/export", s.exportEntries)
			authed.GET("/metrics", s.metrics)
		}
	}
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "address", s.cfg.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
