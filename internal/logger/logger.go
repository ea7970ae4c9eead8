// Package logger wires zap for the service: construction from config,
// per-request loggers carried in the context, and the access log middleware.
package logger

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Config holds logger configuration
type Config struct {
	Level       string
	Environment string
	Service     string
}

var base = zap.NewNop()

// Init builds the process logger and installs it as the zap global.
func Init(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Environment == "production" || cfg.Environment == "prod" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		// human friendly output for local runs
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build(zap.Fields(
		zap.String("service", cfg.Service),
		zap.String("environment", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}
	base = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// L returns the process logger. Before Init it is a no-op logger.
func L() *zap.Logger { return base }

// Middleware logs one line per request once the handler chain returns.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if tid, terr := tenant.FromContext(req.Context()); terr == nil {
				fields = append(fields, zap.Uint64("tenant_id", uint64(tid)))
			}
			l := FromEcho(c)
			switch status := c.Response().Status; {
			case status >= 500:
				l.Error("http request", append(fields, zap.Error(err))...)
			case status >= 400:
				l.Warn("http request", fields...)
			default:
				l.Info("http request", fields...)
			}
			return nil
		}
	}
}
