package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"storefront-backend/cache"
	"storefront-backend/config"
	"storefront-backend/database"
	"storefront-backend/middleware"
	"storefront-backend/routes"
	"storefront-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		log.Fatal().Err(err).Msg("error loading .env file")
	}

	utils.SetupLogger(config.GetEnv("LOG_LEVEL", "info"), config.GetEnv("LOG_FORMAT", "json"))

	// Validate critical environment variables
	if err := config.ValidateEnv(); err != nil {
		log.Fatal().Err(err).Msg("environment validation failed")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Create default admin user if configured
	if err := database.CreateDefaultAdmin(db); err != nil {
		log.Warn().Err(err).Msg("could not create default admin")
	}

	var cartCache cache.CartCache = cache.NoopCache{}
	if redisURL := config.GetEnv("REDIS_URL", ""); redisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := cache.Connect(ctx, redisURL)
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable - cart cache disabled")
		} else {
			defer client.Close()
			cartCache = cache.NewRedisCache(client, config.GetEnvDuration("CART_CACHE_TTL", 5*time.Minute))
			log.Info().Msg("cart cache enabled")
		}
	}

	authLimiter := middleware.NewRateLimiter(config.GetEnvInt("RATE_LIMIT_PER_MINUTE", 20), time.Minute)
	defer authLimiter.Stop()

	// Setup Gin router; GIN_MODE is read by gin itself
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins(),
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
	}))

	// Setup routes
	routes.SetupRoutes(r, db, cartCache, authLimiter)

	// Start server with graceful shutdown
	port := config.GetEnv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in a goroutine
	go func() {
		log.Info().Str("port", port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("error closing database connection")
		} else {
			log.Info().Msg("database connection closed")
		}
	}

	log.Info().Msg("server exited gracefully")
}

// corsOrigins reads the comma separated CORS_ORIGINS list, dropping empty entries.
func corsOrigins() []string {
	var origins []string
	for _, o := range strings.Split(config.GetEnv("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}
