package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/rentdesk/internal/logger"
	"github.com/iliyamo/rentdesk/internal/tenant"
)

// TenantContext resolves the tenant of each request and binds it to the
// request context, where every repository call picks it up. Requests that
// name no known tenant stop here with 404.
func TenantContext(r tenant.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			tid, err := r.Resolve(req.Context(), tenant.Request{
				Host:   req.Host,
				Header: req.Header,
				Claims: Claims(c),
			})
			if errors.Is(err, tenant.ErrTenantNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
			}
			if err != nil {
				logger.FromEcho(c).Error("tenant resolution failed", zap.String("host", req.Host), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			c.SetRequest(req.WithContext(tenant.WithID(req.Context(), tid)))
			logger.Bind(c, logger.FromEcho(c).With(zap.Uint64("tenant_id", uint64(tid))))
			return next(c)
		}
	}
}
