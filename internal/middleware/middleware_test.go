package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rentdesk/internal/middleware"
	"github.com/iliyamo/rentdesk/internal/tenant"
	"github.com/iliyamo/rentdesk/internal/utils"
)

const secret = "test-secret"

// newServer mounts a handler that echoes the bound tenant behind the auth
// and tenant middlewares.
func newServer(resolver tenant.Resolver) *echo.Echo {
	e := echo.New()
	g := e.Group("/v1",
		middleware.RequestID(),
		middleware.JWTAuth(secret),
		middleware.RequireRole(middleware.RoleOwner, middleware.RoleStaff),
		middleware.TenantContext(resolver),
	)
	g.GET("/whoami", func(c echo.Context) error {
		tid, err := tenant.FromContext(c.Request().Context())
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, tid.String())
	})
	return e
}

func do(e *echo.Echo, host, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	if host != "" {
		req.Host = host
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, sec string, tid tenant.ID, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(sec, "user-1", tid, role, ttl)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

func TestTenantFromClaim(t *testing.T) {
	e := newServer(tenant.ClaimResolver{})
	rec := do(e, "", token(t, secret, 7, middleware.RoleOwner, time.Minute))
	if rec.Code != http.StatusOK || rec.Body.String() != "7" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("request id not set")
	}
}

type dir map[string]tenant.ID

func (d dir) LookupSubdomain(_ context.Context, sub string) (tenant.ID, error) {
	if id, ok := d[sub]; ok {
		return id, nil
	}
	return 0, tenant.ErrTenantNotFound
}

func TestTenantFromSubdomainMustMatchClaim(t *testing.T) {
	e := newServer(tenant.Bound{Host: tenant.SubdomainResolver{Dir: dir{"acme": 3, "globex": 4}}})
	rec := do(e, "acme.rentdesk.test:8080", token(t, secret, 3, middleware.RoleStaff, time.Minute))
	if rec.Code != http.StatusOK || rec.Body.String() != "3" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
	for _, tc := range []struct {
		name string
		host string
		tid  tenant.ID
	}{
		{"no tenant claim", "acme.rentdesk.test", 0},
		{"other tenant host", "globex.rentdesk.test", 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, tc.host, token(t, secret, tc.tid, middleware.RoleOwner, time.Minute))
			if rec.Code != http.StatusNotFound {
				t.Fatalf("got %d %q", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUnknownTenantIs404(t *testing.T) {
	e := newServer(tenant.SubdomainResolver{Dir: dir{}})
	rec := do(e, "ghost.rentdesk.test", token(t, secret, 0, middleware.RoleOwner, time.Minute))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got %d", rec.Code)
	}
}

func TestAuthRejections(t *testing.T) {
	e := newServer(tenant.ClaimResolver{})
	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", token(t, "other", 1, middleware.RoleOwner, time.Minute), http.StatusUnauthorized},
		{"expired", token(t, secret, 1, middleware.RoleOwner, -time.Minute), http.StatusUnauthorized},
		{"role", token(t, secret, 1, "CUSTOMER", time.Minute), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(e, "", tc.token); rec.Code != tc.want {
				t.Fatalf("got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
