package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/medibook-api/internal/config"
	"github.com/harentsoaR/medibook-api/internal/handlers"
	"github.com/harentsoaR/medibook-api/internal/logger"
	"github.com/harentsoaR/medibook-api/internal/middleware"
	"github.com/harentsoaR/medibook-api/internal/services"
	"github.com/harentsoaR/medibook-api/internal/store"
	"github.com/harentsoaR/medibook-api/internal/utils"
)

func main() {
	cfg, foundEnvFile, err := config.Load()
	if cfg == nil {
		logger.New("info", "text").WithError(err).Fatal("Failed to load configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if !foundEnvFile {
		log.Info("No .env file found, relying on environment variables.")
	}
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	log.WithField("port", cfg.Port).WithField("database", cfg.MongoDatabase).WithField("environment", cfg.Environment).Info("Configuration loaded")

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		err = client.Ping(ctx, nil)
	}
	if err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	db := client.Database(cfg.MongoDatabase)
	st := store.NewMongoStore(db)
	if err := st.EnsureIndexes(ctx); err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to create indexes")
	}
	cancel()
	log.Info("Successfully connected to MongoDB!")

	// --- Services ---
	tokens, err := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		log.WithError(err).Fatal("Failed to create token issuer")
	}
	notifier := services.NewNotificationService(cfg.TextbeltKey, cfg.TextbeltURL, log)
	monitor := services.NewMonitor(st, notifier, log, cfg.Location, time.Now)
	booking := services.NewBooking(st, notifier, log, cfg.SlotMinutes, cfg.Location, time.Now)
	verification := services.NewVerification(st, log, cfg.VerifyConcurrency)

	h := handlers.NewHandler(st, monitor, booking, verification, notifier, tokens, log, time.Now)

	// --- Gin Router ---
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shut down")
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to disconnect from MongoDB")
	}
}
