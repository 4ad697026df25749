// File: remindly/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"remindly/config"
	"remindly/database"
	reminderRepo "remindly/database/repository/reminder"
	"remindly/handlers"
	"remindly/middleware"
	"remindly/relay"
	"remindly/routes"
	"remindly/services/delivery"
	"remindly/services/scheduling"
	"remindly/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()

	// The token cache and FCM client are only needed for the FCM transport.
	var tokenStore *utils.RedisTokenStore
	if config.AppConfig.PushTechnology == "fcm" {
		utils.InitTokenCache()
		utils.FirebaseInit()
		tokenStore = utils.NewRedisTokenStore(utils.GetTokenCacheClient())
	}

	// The relay runs in-process when it is the selected transport.
	var relayServer *relay.Server
	if config.AppConfig.PushTechnology == "relay" {
		relayServer = relay.NewServer(relay.Options{
			Addr:       config.AppConfig.RelayAddr,
			RetryCount: config.AppConfig.RelayRetryCount,
			RetryDelay: time.Duration(config.AppConfig.RelayRetryDelaySec) * time.Second,
			MaxConns:   config.AppConfig.RelayMaxConnections,
		}, logger)
		if err := relayServer.Start(); err != nil {
			logger.Sugar().Fatalf("main: failed to start push relay: %v", err)
		}
	}

	newBackend := func(clientID string) delivery.Backend {
		switch config.AppConfig.PushTechnology {
		case "relay":
			return delivery.NewRelayBackend(clientID, config.AppConfig.RelayAddr, logger)
		case "fcm":
			return delivery.NewFCMBackend(clientID, utils.FCMClient, tokenStore, logger)
		default:
			// Long polling pulls notifications through the wait endpoint;
			// no dispatch loop is needed.
			return nil
		}
	}

	repo := reminderRepo.NewMongoReminderRepo()
	manager := scheduling.NewManager(newBackend, repo, logger)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := &routes.HandlerBundle{
		Client:   handlers.NewClientHandler(manager, tokenStore),
		Reminder: handlers.NewReminderHandler(manager),
		Poll:     handlers.NewPollHandler(manager),
	}
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if relayServer != nil {
		relayServer.Stop()
	}
	manager.Close()

	logger.Sugar().Info("main: server stopped gracefully")
}
