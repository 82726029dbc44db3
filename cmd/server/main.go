package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openpim/importer/internal/config"
	"github.com/openpim/importer/internal/db"
	"github.com/openpim/importer/internal/importer"
	"github.com/openpim/importer/internal/middleware"
	"github.com/openpim/importer/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn.Pool, "./migrations"); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	orgRepo := repository.NewOrganizationRepository(conn.Pool)
	taskStore := repository.NewTaskStore(conn.Pool, cfg.Import.ReportDir)
	catalogRepo := repository.NewCatalogRepository(conn.Pool)
	fileStore := repository.NewDiskFileStore(cfg.Import.UploadDir)

	service := importer.NewService(orgRepo, taskStore, catalogRepo, fileStore,
		importer.WithChunkSize(cfg.Import.ChunkSize),
		importer.WithRelaxedFamilyValidation(cfg.Import.RelaxFamilyValidation),
		importer.WithJobTimeout(cfg.Import.JobTimeout),
		importer.WithLogger(logger),
	)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
	})

	router := chi.NewRouter()
	router.Use(middleware.Logging(logger))
	router.Use(middleware.TenantScope)
	router.Use(corsHandler.Handler)
	router.Mount("/", importer.NewHandler(service).Routes())

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Starting import server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
