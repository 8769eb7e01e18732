package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"motoya/internal/handler"
	"motoya/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler   *handler.TripHandler
	DriverHandler *handler.DriverHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
	// ActiveTrips reports how many trips this process hosts, for /health.
	ActiveTrips func() int
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if deps.ActiveTrips != nil {
			body["active_trips"] = deps.ActiveTrips()
		}
		c.JSON(http.StatusOK, body)
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip routes.
		trips := v1.Group("/trips")
		trips.POST("", deps.TripHandler.StartTrip)

		trip := trips.Group("/:id", middleware.TripAttributes("id", "tripId"))
		{
			trip.GET("", deps.TripHandler.GetTrip)
			trip.GET("/stream", deps.TripHandler.StreamTrip)
			trip.POST("/encounter", deps.TripHandler.ConfirmEncounter)
			trip.POST("/payment-method", deps.TripHandler.SelectPaymentMethod)
			trip.POST("/payment/confirm", deps.TripHandler.ConfirmPaymentSent)
			trip.GET("/payment/instructions", deps.TripHandler.TransferInstructions)
			trip.POST("/rating", deps.TripHandler.SubmitRating)
			trip.POST("/finalize", deps.TripHandler.Finalize)
			trip.POST("/cancel", deps.TripHandler.CancelTrip)
		}

		// History and driver routes.
		v1.GET("/history", deps.DriverHandler.History)
		drivers := v1.Group("/drivers/:id", middleware.TripAttributes("id", "driverId"))
		{
			drivers.GET("/rating", deps.DriverHandler.DriverRating)
		}
	}

	return router
}
