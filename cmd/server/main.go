package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/booking"
	"github.com/iliyamo/rentdesk/internal/config"
	"github.com/iliyamo/rentdesk/internal/database"
	"github.com/iliyamo/rentdesk/internal/handler"
	"github.com/iliyamo/rentdesk/internal/lock"
	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/metrics"
	"github.com/iliyamo/rentdesk/internal/queue"
	"github.com/iliyamo/rentdesk/internal/repository"
	"github.com/iliyamo/rentdesk/internal/router"
	"github.com/iliyamo/rentdesk/internal/sequence"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

const service = "rentdesk"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger is configured from cfg, so this one goes to stderr
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log, err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, Service: service})
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
		DSN:    cfg.DBDSN,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient()
	var locker lock.Locker = lock.NewLocal()
	if rdb != nil {
		defer rdb.Close()
		locker = lock.NewRedis(rdb, service+":lock", 30*time.Second)
		log.Info("redis connected; using distributed item locks")
	} else {
		log.Warn("redis unavailable; item locks are process local and rate limiting is off")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(service, reg)

	var events booking.EventPublisher = queue.Noop{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL)
		consumer := queue.NewConsumer(cfg.RabbitURL, queue.AuditHandler, log.Named("booking-consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", zap.Error(err))
			}
		}()
	}

	tenants := repository.NewTenantRepo(db)
	items := repository.NewItemRepo(db)
	customers := repository.NewCustomerRepo(db)
	bookings := repository.NewBookingRepo(db)
	invoices := repository.NewInvoiceRepo(db)
	plans := repository.NewPricingPlanRepo(db)
	numbers := sequence.NewInvoiceNumberer(sequence.NewGenerator(repository.NewSequenceRepo(db)), cfg.DefaultInvoicePrefix)

	writer := booking.NewWriter(booking.Deps{
		DB:          db,
		Tenants:     tenants,
		Items:       items,
		Customers:   customers,
		Bookings:    bookings,
		Invoices:    invoices,
		Plans:       plans,
		Numbers:     numbers,
		Locker:      locker,
		Events:      events,
		Metrics:     m,
		LockTimeout: cfg.LockTimeout,
	})

	cacheCfg := config.LoadTenantCacheConfig()
	sub := tenant.SubdomainResolver{Dir: tenants}
	if cacheCfg.Enabled {
		sub.Cache = tenant.NewRedisCache(rdb, cacheCfg.Prefix, cacheCfg.TTL)
	}

	e := router.New(router.Handlers{
		Bookings:  handler.NewBookingHandler(writer, bookings, invoices),
		Items:     handler.NewItemHandler(items, plans, bookings, writer.Resolver()),
		Customers: handler.NewCustomerHandler(customers),
		Invoices:  handler.NewInvoiceHandler(invoices),
		Tenants:   handler.NewTenantHandler(tenants, cfg.AdminToken),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Resolver:  tenant.Bound{Host: sub},
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
		Metrics:   m,
		DB:        db,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("db", cfg.DBDriver))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
