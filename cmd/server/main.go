package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/inspiredanalyst/submanager-server/internal/api"
	"github.com/inspiredanalyst/submanager-server/internal/config"
	"github.com/inspiredanalyst/submanager-server/internal/remote"
	"github.com/inspiredanalyst/submanager-server/internal/repository"
	"github.com/inspiredanalyst/submanager-server/internal/service"
	"github.com/inspiredanalyst/submanager-server/internal/store"
	"github.com/inspiredanalyst/submanager-server/internal/sync"
	"github.com/inspiredanalyst/submanager-server/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()
	logger := utils.NewLogger()

	// Set up persistence
	var repo repository.Repository
	if cfg.Database.Disabled {
		logger.Info("Database disabled, using in-memory repository")
		repo = repository.NewMemoryRepository()
	} else {
		db, err := config.SetupDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to set up database: %v", err)
		}
		defer db.Close()
		repo = repository.NewPostgresRepository(db)
	}

	// Create the record store and sync backend. Without a remote URL the
	// engine runs local-only against the repository snapshots.
	recordStore := store.New()

	var backend sync.Backend
	mode := sync.ModeLocal
	if cfg.Sync.RemoteURL != "" {
		backend = remote.NewClient(cfg.Sync.RemoteURL, cfg.Sync.RequestTimeout)
		mode = sync.ModeRemote
		logger.Info("Remote collaborator configured, syncing every %s", cfg.Sync.Interval)
	} else {
		backend = sync.NewLocalBackend(repo)
		logger.Info("No remote collaborator configured, running in local mode")
	}

	engine := sync.NewEngine(backend, recordStore, service.SchemaResolver(repo), logger, cfg.Sync.Interval, mode)
	engine.Start(context.Background())

	// Create service
	svc, err := service.NewDefaultService(repo, recordStore, engine, logger, cfg.Auth.JWTSecret, cfg.Auth.OperatorPIN)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.Default()

	// The dashboard is a browser client on another origin
	corsConfig := cors.DefaultConfig()
	if cfg.Server.CORSOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = []string{cfg.Server.CORSOrigins}
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
