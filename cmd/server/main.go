package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dias221467/Social_Graph/internal/config"
	"github.com/Dias221467/Social_Graph/internal/database"
	"github.com/Dias221467/Social_Graph/internal/handlers"
	"github.com/Dias221467/Social_Graph/internal/jobs"
	"github.com/Dias221467/Social_Graph/internal/scheduler"
	"github.com/Dias221467/Social_Graph/internal/services"
	"github.com/Dias221467/Social_Graph/pkg/logger"
	"github.com/Dias221467/Social_Graph/pkg/middleware"
	"github.com/rs/cors"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET must be set")
	}

	ctx := context.Background()

	store, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		logger.Log.Fatalf("Database connection error: %v", err)
	}
	defer store.Close(context.Background())

	statusCache, closeCache, err := database.NewStatusCache(ctx, cfg.Redis)
	if err != nil {
		logger.Log.Fatalf("Cache connection error: %v", err)
	}
	defer closeCache()

	publisher, err := database.NewPublisher(cfg.Kafka)
	if err != nil {
		logger.Log.Fatalf("Event publisher error: %v", err)
	}
	defer publisher.Close()

	// --- Services ---
	timeout := cfg.OperationTimeout
	userService := services.NewUserService(store, timeout)
	friendService := services.NewFriendService(store, publisher, timeout)
	followService := services.NewFollowService(store, publisher, timeout)
	communityService := services.NewCommunityService(store, publisher, timeout)
	statusService := services.NewStatusService(store, statusCache, publisher, timeout)
	activityService := services.NewActivityService(store, timeout)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	stopCleanup := rateLimiter.StartCleanup(time.Minute)
	defer stopCleanup()

	// --- Handlers ---
	router := handlers.NewRouter(handlers.Handlers{
		User:      handlers.NewUserHandler(userService),
		Friend:    handlers.NewFriendHandler(friendService),
		Follow:    handlers.NewFollowHandler(followService),
		Community: handlers.NewCommunityHandler(communityService),
		Status:    handlers.NewStatusHandler(statusService),
		Stream:    handlers.NewStatusStreamHandler(statusService, cfg.JWTSecret, cfg.CORS.AllowedOrigins),
		Activity:  handlers.NewActivityHandler(activityService),
	}, handlers.RouterOptions{
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: rateLimiter,
		LastActive:  userService,
	})

	// Reconciliation stays a manual tool unless a schedule is configured.
	repairCron, err := scheduler.StartRepairCronJobs(cfg.Repair.Schedule, jobs.NewReconciler(store))
	if err != nil {
		logger.Log.Fatalf("Invalid repair schedule: %v", err)
	}
	if repairCron != nil {
		defer repairCron.Stop()
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("Server shutdown failed: %v", err)
	}
}
