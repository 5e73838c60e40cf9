package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/OldStager01/demand-predictor/api/handlers"
	"github.com/OldStager01/demand-predictor/api/middleware"
	"github.com/OldStager01/demand-predictor/docs"
	"github.com/OldStager01/demand-predictor/pkg/config"
)

// Service is everything the prediction and location routes call into.
type Service interface {
	handlers.PredictionService
	handlers.LocationService
	handlers.ModelInfoProvider
}

type Options struct {
	// History is nil when the audit log is disabled.
	History      handlers.PredictionHistory
	HealthChecks map[string]handlers.HealthCheck
	Release      bool
}

type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     config.APIConfig
	service    Service
	opts       Options
}

func NewServer(cfg config.APIConfig, service Service, opts Options) *Server {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:  gin.New(),
		config:  cfg,
		service: service,
		opts:    opts,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORS(middleware.CORSFromConfig(s.config.CORS)))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.SecurityHeaders())

	if s.config.MaxBodyBytes > 0 {
		s.router.Use(middleware.RequestSizeLimit(s.config.MaxBodyBytes))
	}

	rateLimiter := middleware.NewRateLimiter(s.config.RateLimit, s.config.RateLimitWindow)
	s.router.Use(middleware.RateLimit(rateLimiter))

	endpointLimiter := middleware.NewEndpointRateLimiter()
	endpointLimiter.AddEndpoint("/get_location", s.config.LocationRateLimit, s.config.RateLimitWindow)
	s.router.Use(endpointLimiter.Middleware())
}

func (s *Server) setupRoutes() {
	// Handlers
	healthHandler := handlers.NewHealthHandler(s.opts.HealthChecks)
	predictionHandler := handlers.NewPredictionHandler(s.service)
	locationHandler := handlers.NewLocationHandler(s.service)
	modelHandler := handlers.NewModelHandler(s.service)
	historyHandler := handlers.NewHistoryHandler(s.opts.History, &s.config)

	// Health
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Predictions
	s.router.POST("/predict", predictionHandler.Predict)
	s.router.GET("/predictions/recent", historyHandler.Recent)
	s.router.GET("/model/info", modelHandler.Info)

	// Locations
	s.router.POST("/get_location", locationHandler.GetLocation)

	if s.config.Swagger {
		docs.SwaggerInfo.BasePath = "/"
		s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idleTimeout := s.config.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
