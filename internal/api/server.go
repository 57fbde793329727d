package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/foodbank/services/donations/config"
	"example.com/foodbank/services/donations/internal/api/handlers"
	"example.com/foodbank/services/donations/internal/api/middleware"
	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/services"
	"example.com/foodbank/services/donations/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config              config.Config
	router              *gin.Engine
	httpServer          *http.Server
	donationService     *services.DonationService
	distributionService *services.DistributionService
	inventoryService    *services.InventoryService
	partnerService      *services.PartnerService
	reportService       *services.ReportService
	metrics             *metrics.Metrics
	tracer              tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	donationService *services.DonationService,
	distributionService *services.DistributionService,
	inventoryService *services.InventoryService,
	partnerService *services.PartnerService,
	reportService *services.ReportService,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:              cfg,
		donationService:     donationService,
		distributionService: distributionService,
		inventoryService:    inventoryService,
		partnerService:      partnerService,
		reportService:       reportService,
		metrics:             metricsCollector,
		tracer:              tracer,
	}

	router := server.setupRouter()
	server.router = router

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}
	server.httpServer = httpServer

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Register handlers
	partnerHandler := handlers.NewPartnerHandler(s.partnerService)
	partnerHandler.RegisterRoutes(router)

	donationHandler := handlers.NewDonationHandler(s.donationService, s.tracer)
	donationHandler.RegisterRoutes(router)

	distributionHandler := handlers.NewDistributionHandler(s.distributionService, s.partnerService, s.tracer)
	distributionHandler.RegisterRoutes(router)

	inventoryHandler := handlers.NewInventoryHandler(s.inventoryService)
	inventoryHandler.RegisterRoutes(router)

	reportHandler := handlers.NewReportHandler(s.reportService, s.inventoryService)
	reportHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics)
	metricsHandler.RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
