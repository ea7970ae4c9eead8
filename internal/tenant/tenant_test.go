package tenant_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/iliyamo/rentdesk/internal/tenant"
)

func TestFromContext(t *testing.T) {
	if _, err := tenant.FromContext(context.Background()); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	ctx := tenant.WithID(context.Background(), 42)
	id, err := tenant.FromContext(ctx)
	if err != nil || id != 42 {
		t.Fatalf("got %v, %v", id, err)
	}
	if _, err := tenant.FromContext(tenant.WithID(context.Background(), 0)); err == nil {
		t.Fatal("zero id must not resolve")
	}
}

func TestContextsDoNotLeak(t *testing.T) {
	base := context.Background()
	a := tenant.WithID(base, 1)
	b := tenant.WithID(base, 2)
	ida, _ := tenant.FromContext(a)
	idb, _ := tenant.FromContext(b)
	if ida != 1 || idb != 2 {
		t.Fatalf("got %d and %d", ida, idb)
	}
}

func TestClaimResolver(t *testing.T) {
	r := tenant.ClaimResolver{}
	cases := []struct {
		name   string
		claims map[string]any
		want   tenant.ID
		ok     bool
	}{
		{"float", map[string]any{"tid": float64(7)}, 7, true},
		{"string", map[string]any{"tid": "9"}, 9, true},
		{"missing", map[string]any{"sub": "1"}, 0, false},
		{"zero", map[string]any{"tid": float64(0)}, 0, false},
		{"fraction", map[string]any{"tid": 1.5}, 0, false},
		{"nil claims", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := r.Resolve(context.Background(), tenant.Request{Claims: tc.claims})
			if tc.ok && (err != nil || id != tc.want) {
				t.Fatalf("got %v, %v", id, err)
			}
			if !tc.ok && !errors.Is(err, tenant.ErrTenantNotFound) {
				t.Fatalf("expected ErrTenantNotFound, got %v", err)
			}
		})
	}
}

func TestSubdomain(t *testing.T) {
	cases := map[string]string{
		"acme.rentdesk.io":      "acme",
		"acme.rentdesk.io:8080": "acme",
		"Acme.Localhost":        "acme",
		"rentdesk.io":           "",
		"www.rentdesk.io":       "",
		"127.0.0.1:8080":        "",
		"":                      "",
	}
	for host, want := range cases {
		if got := tenant.Subdomain(host); got != want {
			t.Errorf("Subdomain(%q) = %q, want %q", host, got, want)
		}
	}
}

type mapDir map[string]tenant.ID

func (m mapDir) LookupSubdomain(_ context.Context, sub string) (tenant.ID, error) {
	if id, ok := m[sub]; ok {
		return id, nil
	}
	return 0, tenant.ErrTenantNotFound
}

type memCache struct {
	m    map[string]tenant.ID
	sets int
}

func (c *memCache) Get(_ context.Context, sub string) (tenant.ID, bool) {
	id, ok := c.m[sub]
	return id, ok
}

func (c *memCache) Set(_ context.Context, sub string, id tenant.ID) {
	c.m[sub] = id
	c.sets++
}

func TestSubdomainResolverCaches(t *testing.T) {
	cache := &memCache{m: map[string]tenant.ID{}}
	r := tenant.SubdomainResolver{Dir: mapDir{"acme": 3}, Cache: cache}
	for i := 0; i < 3; i++ {
		id, err := r.Resolve(context.Background(), tenant.Request{Host: "acme.rentdesk.io"})
		if err != nil || id != 3 {
			t.Fatalf("got %v, %v", id, err)
		}
	}
	if cache.sets != 1 {
		t.Fatalf("expected a single cache fill, got %d", cache.sets)
	}
	if _, err := r.Resolve(context.Background(), tenant.Request{Host: "nope.rentdesk.io"}); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if _, ok := cache.m["nope"]; ok {
		t.Fatal("misses must not be cached")
	}
}

type failingDir struct{}

func (failingDir) LookupSubdomain(context.Context, string) (tenant.ID, error) {
	return 0, errors.New("directory down")
}

func TestBound(t *testing.T) {
	b := tenant.Bound{Host: tenant.SubdomainResolver{Dir: mapDir{"acme": 3, "globex": 4}}}
	ctx := context.Background()

	req := tenant.Request{Host: "acme.rentdesk.io", Header: http.Header{}}
	if _, err := b.Resolve(ctx, req); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("host alone must not resolve: %v", err)
	}
	req.Claims = map[string]any{"sub": "stranger"}
	if _, err := b.Resolve(ctx, req); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("claims without tid must not resolve: %v", err)
	}

	req.Claims = map[string]any{"tid": float64(3)}
	if id, err := b.Resolve(ctx, req); err != nil || id != 3 {
		t.Fatalf("matching host: got %v, %v", id, err)
	}
	req.Host = "globex.rentdesk.io"
	if _, err := b.Resolve(ctx, req); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("host of another tenant: %v", err)
	}
	req.Host = "ghost.rentdesk.io"
	if _, err := b.Resolve(ctx, req); !errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("unknown host: %v", err)
	}
	req.Host = "localhost:8080"
	if id, err := b.Resolve(ctx, req); err != nil || id != 3 {
		t.Fatalf("bare host: got %v, %v", id, err)
	}

	req.Host = "acme.rentdesk.io"
	down := tenant.Bound{Host: tenant.SubdomainResolver{Dir: failingDir{}}}
	if _, err := down.Resolve(ctx, req); err == nil || errors.Is(err, tenant.ErrTenantNotFound) {
		t.Fatalf("lookup failure must surface, got %v", err)
	}
}
