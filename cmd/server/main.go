package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrlabs/appforge/internal/api"
	"github.com/jrlabs/appforge/internal/appctx"
	"github.com/jrlabs/appforge/internal/config"
	"github.com/jrlabs/appforge/internal/core"
	"github.com/jrlabs/appforge/internal/generate"
	"github.com/jrlabs/appforge/internal/hosting"
	"github.com/jrlabs/appforge/internal/logger"
	"github.com/jrlabs/appforge/internal/preview"
	"github.com/jrlabs/appforge/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize the storage backend
	var appStore store.AppStore
	var err error
	switch cfg.StorageBackend {
	case "postgres":
		appStore, err = store.NewPostgresStore(context.Background(), cfg.PostgresDSN)
	default:
		appStore, err = store.NewSQLiteStore(cfg.SQLitePath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize %s store: %v", cfg.StorageBackend, err)
	}
	defer appStore.Close()

	// Generation providers: Gemini first when a key is configured, then
	// Pollinations as the fallback.
	var gens []generate.Generator
	var gemini *generate.GeminiGenerator
	if cfg.GeminiAPIKey != "" {
		gemini, err = generate.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer gemini.Close()
		gens = append(gens, gemini)
	}
	pollinations := generate.NewPollinationsGenerator(cfg.PollinationsURL, cfg.PollinationsKey, cfg.GenerateTimeout)
	gens = append(gens, pollinations)
	chain := generate.NewChain(cfg.GenerateTimeout, cfg.MaxConcurrentGen, gens...)

	publisher := hosting.NewHTTPPublisher(cfg.HostingURL, cfg.HostingKey, 30*time.Second)
	previews := preview.NewRegistry(0)

	// Shared runtime context: settings snapshot plus the activity feed.
	actx := appctx.New(0)
	defer actx.Close()
	if settings, err := appStore.GetSettings(context.Background()); err == nil {
		if settings.Model == "" {
			settings.Model = cfg.DefaultModel
		}
		actx.SetSettings(*settings)
	} else {
		actx.SetSettings(store.Settings{Model: cfg.DefaultModel})
	}

	autosaver := core.NewAutosaver(appStore, actx, cfg.AutosaveQuiet)
	workspace := core.NewWorkspace(appStore, autosaver)
	builder := core.NewBuilderService(appStore, chain, publisher, previews, actx, cfg.GenerateTimeout)

	apiHandler := api.NewAPIHandler(builder, appStore, workspace, autosaver, previews, pollinations, actx, cfg.ShareSecret, cfg.ShareTokenTTL)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // generation requests can take a while
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Commit any edit still inside its quiet period before the store closes.
	autosaver.Close()

	log.Println("Server exiting gracefully")
}
