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
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/shpluspower/backend/internal/activity"
	"github.com/shpluspower/backend/internal/admin"
	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/config"
	"github.com/shpluspower/backend/internal/handlers"
	"github.com/shpluspower/backend/internal/identity"
	"github.com/shpluspower/backend/internal/jobs"
	"github.com/shpluspower/backend/internal/ledger"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/referral"
	"github.com/shpluspower/backend/internal/routes"
	"github.com/shpluspower/backend/internal/scheduler"
	"github.com/shpluspower/backend/internal/sink"
	"github.com/shpluspower/backend/internal/store"
	"github.com/shpluspower/backend/internal/syncer"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	// Initialize database
	db, err := store.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	kv, err := store.NewGormStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	repo := store.NewRepository(kv)

	deviceID, err := repo.DeviceID()
	if err != nil {
		log.Fatalf("Failed to resolve device ID: %v", err)
	}

	notifier := buildNotifier(cfg)

	ids := identity.New()
	clk := clock.New()

	actLog := activity.NewLog(repo, ids, clk)
	referralEngine := referral.NewEngine(repo, actLog, ids, clk, cfg.Ledger, notifier)
	ledgerEngine := ledger.NewEngine(repo, actLog, ids, clk, cfg.Ledger, notifier)
	adminWorkflow := admin.NewWorkflow(repo, actLog, referralEngine, clk)

	coordinator := syncer.NewCoordinator(kv, repo, syncer.LWWReconciler{}, notifier, clk, deviceID)

	// Sessions are stateless JWTs, so handlers re-read the store per
	// request; a replaced record only needs to be visible in the logs.
	coordinator.OnUserChanged = func(u models.User) {
		log.Printf("sync replaced local record for user %s", u.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coordinator.Start(ctx)

	// Reconcile against the master snapshot before serving requests.
	if err := coordinator.Sync(ctx); err != nil {
		log.Printf("Initial sync failed: %v", err)
	}

	// Schedule recurring jobs
	sched := scheduler.NewGocron()
	if err := jobs.RegisterRecurringJobs(sched, cfg.Sync, ledgerEngine, coordinator); err != nil {
		log.Fatalf("Failed to register recurring jobs: %v", err)
	}
	sched.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(ledgerEngine, referralEngine, coordinator, cfg)
	ledgerHandler := handlers.NewLedgerHandler(ledgerEngine, coordinator)
	adminHandler := handlers.NewAdminHandler(adminWorkflow, actLog, coordinator)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Setup routes
	routes.RegisterRoutes(router, authHandler, ledgerHandler, adminHandler)

	// Start server
	srv := startServer(router, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	sched.Stop()
	cancel()

	// Create a deadline to wait for
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Shutdown server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// buildNotifier selects the remote sink from configuration. Delivery is
// best-effort; a misconfigured sink falls back to a no-op.
func buildNotifier(cfg *config.Config) *sink.Notifier {
	backoff := time.Duration(cfg.Sync.SinkBackoffMS) * time.Millisecond

	switch cfg.Sync.SinkKind {
	case "webhook":
		if cfg.Sync.SinkURL == "" {
			log.Println("SINK_URL not set, sync events will not be mirrored")
			return sink.NewNotifier(sink.NopSink{}, 0, 0)
		}
		return sink.NewNotifier(sink.NewWebhookSink(cfg.Sync.SinkURL), cfg.Sync.SinkRetries, backoff)
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.URL,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		return sink.NewNotifier(sink.NewRedisSink(redisClient, cfg.Sync.SinkRedisKey), cfg.Sync.SinkRetries, backoff)
	default:
		return sink.NewNotifier(sink.NopSink{}, 0, 0)
	}
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
