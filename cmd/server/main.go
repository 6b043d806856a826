package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"barcode-central/internal/api/handlers"
	"barcode-central/internal/api/middleware"
	"barcode-central/internal/config"
	"barcode-central/internal/history"
	"barcode-central/internal/job"
	"barcode-central/internal/preview"
	"barcode-central/internal/printer"
	"barcode-central/internal/template"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Optional .env for local development; deployments set real env.
	if err := godotenv.Load(); err == nil {
		log.Printf("[server] loaded environment from .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[server] failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[server] invalid config: %v", err)
	}

	templates, err := template.NewStore(cfg.Storage.TemplatesDir)
	if err != nil {
		log.Fatalf("[server] failed to open template store: %v", err)
	}

	registry := printer.NewRegistry(cfg.Storage.PrintersFile)
	transport := printer.NewTransport(registry, cfg.Printers.ConnectTimeout, cfg.Printers.SettleDelay)
	hist := history.NewStore(cfg.Storage.HistoryFile, cfg.Storage.HistoryMaxEntries)

	var previews *preview.Generator
	var previewForJobs job.PreviewGenerator
	if cfg.Preview.Enabled {
		previews, err = preview.NewGenerator(cfg.Preview.BaseURL, cfg.Preview.Timeout, cfg.Storage.PreviewsDir)
		if err != nil {
			log.Fatalf("[server] failed to open preview store: %v", err)
		}
		previewForJobs = previews
	}

	runner := job.NewRunner(templates, registry, transport, hist, previewForJobs)

	auth, err := middleware.NewAuthMiddleware(cfg.Auth)
	if err != nil {
		log.Fatalf("[server] failed to initialize auth: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.POST("/login", auth.LoginHandler)
	router.POST("/logout", auth.LogoutHandler)
	router.GET("/api/auth/status", auth.StatusHandler)
	router.GET("/api/health", handlers.Health)

	api := router.Group("/api", auth.RequireAuth())
	handlers.RegisterTemplateRoutes(api, handlers.NewTemplateHandler(templates))
	handlers.RegisterPrinterRoutes(api, handlers.NewPrinterHandler(registry, transport, cfg.Printers.TestTimeout))
	handlers.RegisterHistoryRoutes(api, handlers.NewHistoryHandler(hist, runner))
	handlers.RegisterPrintRoutes(api, handlers.NewPrintHandler(runner, templates, previews))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if previews != nil && cfg.Preview.RetentionHours > 0 {
		go previewCleanupLoop(ctx, previews, time.Duration(cfg.Preview.RetentionHours)*time.Hour)
	}

	go func() {
		log.Printf("[server] listening on :%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] listen failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}
}

// previewCleanupLoop periodically removes previews past the retention
// window.
func previewCleanupLoop(ctx context.Context, previews *preview.Generator, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := previews.Cleanup(retention); err != nil {
				log.Printf("[server] preview cleanup failed: %v", err)
			}
		}
	}
}
