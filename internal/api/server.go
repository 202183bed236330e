// Package api exposes the read model and operator actions to the
// rendering layer over HTTP and websocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aquawatch/aquawatch-core/internal/api/handlers"
	"github.com/aquawatch/aquawatch-core/internal/api/middleware"
	"github.com/aquawatch/aquawatch-core/internal/config"
	"github.com/aquawatch/aquawatch-core/internal/engine"
	"github.com/aquawatch/aquawatch-core/internal/state"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	store      *state.Store
	engine     *engine.Engine
	router     *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, log logger.Logger, store *state.Store, eng *engine.Engine) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config: cfg,
		logger: log,
		store:  store,
		engine: eng,
		router: router,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.CORSMiddleware())
	s.router.Use(middleware.RequestLogger(s.logger))
	s.router.Use(middleware.MetricsMiddleware())
}

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.store)
	s.router.GET("/healthz", healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	stateHandler := handlers.NewStateHandler(s.store, s.logger)
	opsHandler := handlers.NewOpsHandler(s.engine, s.logger)

	v1 := s.router.Group("/api/v1")

	v1.GET("/state/snapshot", stateHandler.GetSnapshot)
	v1.GET("/state/stream", stateHandler.HandleStateStream)

	v1.POST("/simulation/mode/:mode", opsHandler.SetSimulationMode)
	v1.POST("/water-quality/mode/:mode", opsHandler.SetWaterQualityMode)
	v1.POST("/maintenance/:id/status", opsHandler.UpdateTicketStatus)
	v1.POST("/chat/message", opsHandler.SendChatMessage)
	v1.POST("/detection/train-simulated", opsHandler.TrainSimulated)
	v1.GET("/export/:report", opsHandler.DownloadExport)
}

func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("REST API server starting", "port", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Handler returns the underlying Gin engine so tests can mount it.
func (s *Server) Handler() http.Handler {
	return s.router
}
