package middleware

// identity.go holds the accessors for what JWTAuth and TenantContext leave on
// the echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

// Claims returns the verified token claims, or nil for anonymous requests.
func Claims(c echo.Context) map[string]any {
	m, _ := c.Get(ClaimsKey).(map[string]any)
	return m
}

// currentUserID returns the token subject, or "anon".
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(UserIDKey).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// currentTenant returns the tenant bound to the request, or "none" before
// TenantContext has run.
func currentTenant(c echo.Context) string {
	if tid, err := tenant.FromContext(c.Request().Context()); err == nil {
		return tid.String()
	}
	return "none"
}
