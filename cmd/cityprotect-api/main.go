package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/stonybrain/cityprotect-api/internal/api/http"
	"github.com/stonybrain/cityprotect-api/internal/cityprotect"
	"github.com/stonybrain/cityprotect-api/internal/config"
	"github.com/stonybrain/cityprotect-api/internal/geocode"
	"github.com/stonybrain/cityprotect-api/internal/incident"
	"github.com/stonybrain/cityprotect-api/internal/notify"
	"github.com/stonybrain/cityprotect-api/internal/observability"
	"github.com/stonybrain/cityprotect-api/internal/scheduler"
	"github.com/stonybrain/cityprotect-api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Upstream portal client with its own timeout.
	upstream := cityprotect.NewClient(&http.Client{Timeout: cfg.UpstreamTimeout})

	// Reverse geocoding is feature-flagged; a nil resolver disables it.
	var resolver incident.AddressResolver
	if cfg.EnableReverseGeocode {
		geoClient := geocode.NewClient(&http.Client{Timeout: cfg.GeocodeTimeout}, cfg.GeocodeUserAgent)
		resolver = geocode.NewResolver(geoClient, geocode.ResolverConfig{
			Precision:   cfg.GeocodePrecision,
			MaxEntries:  cfg.GeocodeCacheSize,
			MinInterval: cfg.GeocodeMinInterval,
		}, metrics)
		log.Printf("reverse geocoding enabled (precision=%d, min interval=%s)",
			cfg.GeocodePrecision, cfg.GeocodeMinInterval)
	}

	normalizer := incident.NewNormalizer(resolver, cfg.GeocodeMaxPerBatch)
	cache := store.NewReportCache(clock, cfg.CacheTTL, cfg.CacheMaxEntries)
	service := incident.NewService(upstream, normalizer, cache, metrics, clock)

	// Notifier wiring, only when a webhook is configured.
	var runNotify httpapi.NotifyRunner
	if cfg.WebhookURL != "" {
		sink := notify.NewWebhook(&http.Client{Timeout: cfg.WebhookTimeout}, cfg.WebhookURL, cfg.WebhookUsername)
		notifier := notify.NewNotifier(notify.NewTracker(), sink, cfg.NotifyMaxItems, metrics)

		runNotify = func(ctx context.Context) (int, error) {
			report, err := service.Report(ctx, incident.Params{Hours: cfg.DefaultWindowHours})
			if err != nil {
				return 0, err
			}
			return notifier.Notify(ctx, report.Incidents)
		}

		sched := scheduler.New(cfg.NotifyInterval, scheduler.NotifyJob(runNotify))
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	} else {
		log.Println("WEBHOOK_URL not set; notifier disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:               "cityprotect-api",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "cityprotect-api",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, upstream, runNotify, httpapi.Options{
		DefaultHours:   cfg.DefaultWindowHours,
		MaxHours:       cfg.MaxWindowHours,
		GeocodeDefault: cfg.EnableReverseGeocode,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
