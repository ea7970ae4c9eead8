// Package router registers the HTTP routes and their middleware chains.
package router

import (
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/rentdesk/internal/config"
	"github.com/iliyamo/rentdesk/internal/handler"
	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/metrics"
	"github.com/iliyamo/rentdesk/internal/middleware"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Handlers bundles the HTTP handlers mounted under /v1.
type Handlers struct {
	Bookings  *handler.BookingHandler
	Items     *handler.ItemHandler
	Customers *handler.CustomerHandler
	Invoices  *handler.InvoiceHandler
	Tenants   *handler.TenantHandler
}

// Options configures the middleware of the tenant routes.
type Options struct {
	JWTSecret string
	Resolver  tenant.Resolver
	RateLimit config.RateLimitConfig
	Redis     *redis.Client // nil disables rate limiting
	Metrics   *metrics.Metrics
	DB        *sqlx.DB
}

// New builds the echo instance with every route registered.
func New(h Handlers, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(logger.Middleware())
	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
	}

	RegisterRoutes(e, opts)
	// onboarding happens before a tenant or a token exists
	e.POST("/v1/tenants", h.Tenants.Create)

	g := e.Group("/v1",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.RequireRole(middleware.RoleOwner, middleware.RoleStaff),
		middleware.TenantContext(opts.Resolver),
		middleware.NewTokenBucket(opts.RateLimit, opts.Redis),
	)
	g.GET("/tenant", h.Tenants.Current)
	RegisterBookings(g, h.Bookings)
	RegisterCatalog(g, h.Items, h.Customers)
	RegisterInvoices(g, h.Invoices)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, opts Options) {
	e.GET("/healthz", handler.Health)
	if opts.DB != nil {
		e.GET("/readyz", handler.Ready(opts.DB))
	}
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}
}
