package http

import (
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/swath-geocoding/internal/metrics"
	"go.ngs.io/swath-geocoding/internal/usecase"
)

// RouterConfig configures the router.
type RouterConfig struct {
	// AllowedOrigins lists the CORS origins. Empty allows all origins.
	AllowedOrigins []string
	Logger         *slog.Logger
}

// SetupRouter creates and configures the Gin router.
func SetupRouter(geocodingUC *usecase.GeoCodingUseCase, cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))
	router.Use(metrics.Middleware())

	// Create handler.
	handler := NewHandler(geocodingUC, cfg.Logger)

	// API v1 routes.
	v1 := router.Group("/v1")
	products := v1.Group("/products")
	products.GET("", handler.ListProducts)
	products.GET("/:id", handler.GetProduct)
	products.GET("/:id/subset", handler.GetSubset)
	products.GET("/:id/footprint", handler.GetFootprint)

	// Position conversion.
	products.GET("/:id/geo", handler.GetGeoPos)
	products.POST("/:id/geo", handler.PostGeoPos)
	products.GET("/:id/pixel", handler.GetPixelPos)
	products.POST("/:id/pixel", handler.PostPixelPos)

	// Health check and metrics.
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
