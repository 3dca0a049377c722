package cmd

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"registration-system/config"
	"registration-system/handlers"
	_ "registration-system/migrations"
	"registration-system/monitoring"
	"registration-system/security"
	"registration-system/services"
	"registration-system/utils"

	"github.com/labstack/echo/v5"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	pubnub "github.com/pubnub/go"
	"github.com/redis/go-redis/v9"
)

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services
	ledger := services.NewRegistrationLedger(app)
	tokens := services.NewCheckinTokenService(cfg)
	registrationService := services.NewRegistrationService(ledger, tokens)
	eventService := services.NewEventService(app)
	statsService := services.NewStatsService(redisClient, cfg.RecentCheckinLimit)
	notifier := services.NewNotifier(pn)
	limiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute, time.Minute)

	// Initialize handlers
	registrationHandler := handlers.NewRegistrationHandler(app, registrationService, eventService, statsService, notifier, limiter)
	eventHandler := handlers.NewEventHandler(app, eventService)
	adminHandler := handlers.NewAdminHandler(app, registrationService, eventService, tokens, statsService, notifier, redisClient)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: true,
	})

	// Metrics endpoint on its own ops server
	if cfg.EnableMetrics {
		monitoring.NewMonitor(redisClient, cfg.StatsSampleInterval)
		go startMetricsServer(cfg.MetricsPort)
	}

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		syncPublishedEventsToRedis(ctx, app, redisClient)

		// Event endpoints
		e.Router.GET("/api/v1/events", eventHandler.ListEvents)
		e.Router.GET("/api/v1/events/{eventId}", eventHandler.GetEvent)
		e.Router.POST("/api/v1/events", eventHandler.CreateEvent)
		e.Router.DELETE("/api/v1/events/{eventId}", eventHandler.DeleteEvent)
		e.Router.POST("/api/v1/events/{eventId}/unlock-location", registrationHandler.UnlockLocation)

		// Registration endpoints
		e.Router.POST("/api/v1/registrations", registrationHandler.Register)
		e.Router.POST("/api/v1/registrations/cancel", registrationHandler.Cancel)
		e.Router.GET("/api/v1/registrations/mine", registrationHandler.MyRegistrations)
		e.Router.POST("/api/v1/checkin", registrationHandler.CheckIn)

		// Admin endpoints
		e.Router.GET("/api/v1/admin/events/{eventId}/registrations", adminHandler.ListEventRegistrations)
		e.Router.POST("/api/v1/admin/events/{eventId}/checkin-token", adminHandler.IssueToken)
		e.Router.PATCH("/api/v1/admin/registrations/{id}/approval", adminHandler.SetApproval)
		e.Router.POST("/api/v1/admin/registrations/{id}/revoke-checkin", adminHandler.RevokeCheckIn)
		e.Router.DELETE("/api/v1/admin/registrations/{id}", adminHandler.DeleteRegistration)
		e.Router.GET("/api/v1/admin/attendance", adminHandler.Attendance)

		// Health check
		e.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		log.Println("Server routes registered")

		setupEventHooks(app, redisClient)

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		return err
	}
	return nil
}

// startMetricsServer serves Prometheus metrics and a liveness probe on
// a separate port, away from the public API.
func startMetricsServer(port string) {
	sc := echo.StartConfig{
		Address:    ":" + port,
		HideBanner: true,
	}
	if err := sc.Start(newMetricsRouter()); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}

func newMetricsRouter() *echo.Echo {
	e := echo.New()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return e
}

// syncPublishedEventsToRedis rebuilds the active_events set on startup.
func syncPublishedEventsToRedis(ctx context.Context, app *pocketbase.PocketBase, redisClient *redis.Client) {
	var records []dbx.NullStringMap
	if err := app.DB().NewQuery(
		"SELECT id FROM events WHERE status = 'publish'",
	).All(&records); err != nil {
		log.Printf("Error fetching published events: %v", err)
		return
	}

	redisClient.Del(ctx, "active_events")

	if len(records) > 0 {
		var eventIDs []interface{}
		for _, record := range records {
			if id := record["id"].String; id != "" {
				eventIDs = append(eventIDs, id)
			}
		}

		if len(eventIDs) > 0 {
			redisClient.SAdd(ctx, "active_events", eventIDs...)
			log.Printf("Synced %d published events to Redis", len(eventIDs))
		}
	}
}

// setupEventHooks keeps the Redis active_events set in sync with the
// events collection as records change.
func setupEventHooks(app *pocketbase.PocketBase, redisClient *redis.Client) {
	app.OnRecordCreateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		if e.Record.GetString("status") == "publish" {
			if err := redisClient.SAdd(ctx, "active_events", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to add published event to Redis", "eventID", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordUpdateRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		if e.Record.GetString("status") == "publish" {
			if err := redisClient.SAdd(ctx, "active_events", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to add published event to Redis", "eventID", e.Record.Id, "error", err)
			}
		} else {
			if err := redisClient.SRem(ctx, "active_events", e.Record.Id).Err(); err != nil {
				slog.Error("Failed to remove unpublished event from Redis", "eventID", e.Record.Id, "error", err)
			}
		}
		return nil
	})

	app.OnRecordDeleteRequest("events").BindFunc(func(e *core.RecordRequestEvent) error {
		if err := e.Next(); err != nil {
			return err
		}

		ctx := e.Request.Context()
		if err := redisClient.SRem(ctx, "active_events", e.Record.Id).Err(); err != nil {
			slog.Error("Failed to remove deleted event from Redis", "eventID", e.Record.Id, "error", err)
		}
		return nil
	})
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, cleaning up...")
	cancel()
}
