package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"oddsrules/internal"
	"oddsrules/internal/api"
	"oddsrules/internal/config"
	"oddsrules/internal/container"
	"oddsrules/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := internal.NewDefaultLogger()

	appContainer, err := container.New(appConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The rule set is built (or loaded) once and shared read-only by every request
	ruleSet, err := appContainer.RuleSet(ctx)
	if err != nil {
		log.Fatalf("Failed to prepare rule set: %v", err)
	}

	gin.SetMode(appConfig.Server.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	api.NewQueryHandler(appContainer.QueryService(ruleSet), logger).Register(router)

	reportUI, err := ui.NewApp(ruleSet, logger)
	if err != nil {
		log.Fatalf("Failed to initialize report UI: %v", err)
	}
	router.NoRoute(gin.WrapH(reportUI.Handler()))

	server := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown: %v", err)
		}
	}()

	logger.Info("Serving rule set %s on port %s", ruleSet.Manifest().RunID, appConfig.Server.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
