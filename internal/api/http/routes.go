package httpapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/stonybrain/cityprotect-api/internal/incident"
)

var validate = validator.New()

// ReportProvider is what the handlers need from the incident service.
type ReportProvider interface {
	Report(ctx context.Context, p incident.Params) (incident.Report, error)
}

// RawFetcher exposes the upstream debug passthrough.
type RawFetcher interface {
	RawBody(ctx context.Context, from, to time.Time) (int, []byte, error)
}

// NotifyRunner runs one fetch-and-notify cycle and returns how many incidents
// were reported. Nil when no webhook is configured.
type NotifyRunner func(ctx context.Context) (int, error)

// Options carry the request-window bounds and per-request defaults.
type Options struct {
	DefaultHours   int
	MaxHours       int
	GeocodeDefault bool
}

// ErrorHandler is the centralized Fiber error handler: every failure becomes
// `{"error": <message>}` with the appropriate status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc ReportProvider, raw RawFetcher, notify NotifyRunner, opts Options) {
	api := app.Group("/api")

	api.Get("/test", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api.Get("/redding", func(c *fiber.Ctx) error {
		params, err := parseReddingQuery(c, opts)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return serveReport(c, svc, params)
	})

	// Backward-compatible fixed-window alias.
	api.Get("/redding-72h", func(c *fiber.Ctx) error {
		params, err := parseReddingQuery(c, opts)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		params.Hours = 72
		return serveReport(c, svc, params)
	})

	api.Get("/raw", func(c *fiber.Ctx) error {
		now := time.Now().UTC()
		status, body, err := raw.RawBody(c.UserContext(), now.Add(-72*time.Hour), now)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.SendString(fmt.Sprintf("status=%d\n\n%s", status, body))
	})

	api.Post("/notify", func(c *fiber.Ctx) error {
		if notify == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "notifier is not configured")
		}
		sent, err := notify(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"sent": sent})
	})
}

func serveReport(c *fiber.Ctx, svc ReportProvider, params incident.Params) error {
	report, err := svc.Report(c.UserContext(), params)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(report)
}

// reddingQuery holds the validated query parameters for report requests.
type reddingQuery struct {
	Hours   int `validate:"min=1"`
	Limit   int `validate:"min=0"`
	Lite    bool
	Geocode bool
}

func parseReddingQuery(c *fiber.Ctx, opts Options) (incident.Params, error) {
	hours := c.QueryInt("hours", opts.DefaultHours)
	// Out-of-range windows are clamped, not rejected, matching the portal
	// consumers this API predates.
	if hours < 1 {
		hours = 1
	}
	if hours > opts.MaxHours {
		hours = opts.MaxHours
	}

	q := reddingQuery{
		Hours:   hours,
		Limit:   c.QueryInt("limit", 0),
		Lite:    c.QueryBool("lite", false),
		Geocode: c.QueryBool("geocode", opts.GeocodeDefault),
	}
	if err := validate.Struct(q); err != nil {
		return incident.Params{}, err
	}

	return incident.Params{
		Hours:   q.Hours,
		Lite:    q.Lite,
		Limit:   q.Limit,
		Geocode: q.Geocode,
	}, nil
}
