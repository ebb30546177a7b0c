package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/usamatauqir381/questxcopilot/internal/app"
	"github.com/usamatauqir381/questxcopilot/internal/audit"
	"github.com/usamatauqir381/questxcopilot/internal/config"
	"github.com/usamatauqir381/questxcopilot/internal/repository"
	"github.com/usamatauqir381/questxcopilot/internal/service"
	"github.com/usamatauqir381/questxcopilot/internal/transport/rest"
	"github.com/usamatauqir381/questxcopilot/internal/transport/ws"
)

// @title Proctored Assessment API
// @version 1.0
// @description Candidate access, tutorial and timed multiple-choice tests with anti-cheat monitoring
// @host localhost:8080
// @BasePath /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx := context.Background()
	cfg := config.Load()

	// Assessment catalog
	catalog, err := config.LoadCatalog(cfg.AssessmentsFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatal("Failed to load assessment catalog:", err)
		}
		log.Printf("Warning: %s not found, starting without a catalog", cfg.AssessmentsFile)
	}
	if catalog != nil && catalog.AccessCodeRequired && cfg.AccessCode == "" {
		cfg.AccessCode = catalog.AccessCode
	}

	// Audit log
	auditLog, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		log.Fatal("Failed to open audit log:", err)
	}
	log.Printf("Audit log at %s", cfg.AuditDBPath)

	var stores *app.App
	switch cfg.Storage {
	case "memory":
		stores = app.NewMemory(auditLog, cfg.LockWait)
		log.Println("Using in-memory storage (single instance only)")

	default:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("Failed to connect to MongoDB:", err)
		}
		defer mongoClient.Disconnect(ctx)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			log.Fatal("Failed to ping MongoDB:", err)
		}
		log.Println("Connected to MongoDB")

		db := mongoClient.Database(cfg.MongoDB)
		repository.EnsureIndexes(ctx, db)

		rdb := redis.NewClient(&redis.Options{
			Addr:     strings.TrimPrefix(cfg.RedisAddr, "redis://"),
			Password: cfg.RedisPassword,
		})
		defer rdb.Close()

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatal("Failed to ping Redis:", err)
		}
		log.Println("Connected to Redis")

		stores = app.NewMongo(db, rdb, auditLog, cfg)
	}

	// Initialize WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	notifier := service.NewNotifier(cfg.SMTP, cfg.MailSubject)
	if cfg.SMTP.Enabled() {
		log.Printf("Access codes sent via SMTP %s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	} else {
		log.Println("SMTP_HOST not set, access codes are written to the log")
	}

	svcs := stores.NewServices(cfg, notifier, service.LogRenderer{})
	svcs.SetBroadcaster(wsHub)

	if catalog != nil {
		created, err := svcs.Provisioning.SeedCatalog(ctx, catalog)
		if err != nil {
			log.Fatal("Failed to seed assessments:", err)
		}
		log.Printf("Catalog: %d assessments, %d newly created", len(catalog.Assessments), created)
	}

	container := &rest.Container{
		AuthService:         svcs.Auth,
		AccessService:       svcs.Access,
		SessionService:      svcs.Sessions,
		MonitorService:      svcs.Monitor,
		ProvisioningService: svcs.Provisioning,
		ReportService:       svcs.Reports,
		WSHub:               wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Printf("Admin auth: username=%s", cfg.AdminUsername)
		log.Println("Endpoints:")
		log.Println("  POST /v1/access/request | /v1/access/verify | /v1/access/login")
		log.Println("  POST /v1/session/tutorial | /v1/session/tutorial/complete | /v1/session/test")
		log.Println("  GET  /v1/attempts/{id}")
		log.Println("  PUT  /v1/attempts/{id}/answers/{questionId}")
		log.Println("  POST /v1/attempts/{id}/violations | /v1/attempts/{id}/submit")
		log.Println("  GET  /v1/submissions/{id}")
		log.Println("  POST /v1/admin/login, /v1/admin/... (operator)")
		log.Println("  WS   /v1/ws/assessments/{slug}/proctor")
		log.Println("  WS   /v1/ws/attempts/{id}")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
