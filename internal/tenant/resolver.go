package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Request is the request metadata a Resolver may inspect. Claims holds the
// already verified token claims, or nil for anonymous requests.
type Request struct {
	Host   string
	Header http.Header
	Claims map[string]any
}

// Resolver maps request metadata to a tenant. Implementations return
// ErrTenantNotFound (possibly wrapped) when the request names no tenant they
// recognise; any other error is treated as a lookup failure.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (ID, error)
}

// ClaimResolver reads the tenant from a token claim.
type ClaimResolver struct {
	// Claim defaults to "tid".
	Claim string
}

func (r ClaimResolver) Resolve(_ context.Context, req Request) (ID, error) {
	name := r.Claim
	if name == "" {
		name = "tid"
	}
	if req.Claims == nil {
		return 0, ErrTenantNotFound
	}
	switch v := req.Claims[name].(type) {
	case float64:
		if v <= 0 || v != float64(uint64(v)) {
			return 0, ErrTenantNotFound
		}
		return ID(v), nil
	case json.Number:
		return ParseID(v.String())
	case string:
		return ParseID(v)
	case uint64:
		if v == 0 {
			return 0, ErrTenantNotFound
		}
		return ID(v), nil
	}
	return 0, ErrTenantNotFound
}

// Directory looks tenants up by subdomain. Unknown subdomains yield
// ErrTenantNotFound.
type Directory interface {
	LookupSubdomain(ctx context.Context, subdomain string) (ID, error)
}

// Cache stores subdomain lookups. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, subdomain string) (ID, bool)
	Set(ctx context.Context, subdomain string, id ID)
}

// SubdomainResolver maps the first DNS label of the request host to a tenant.
type SubdomainResolver struct {
	Dir   Directory
	Cache Cache
}

func (r SubdomainResolver) Resolve(ctx context.Context, req Request) (ID, error) {
	sub := Subdomain(req.Host)
	if sub == "" {
		return 0, ErrTenantNotFound
	}
	if r.Cache != nil {
		if id, ok := r.Cache.Get(ctx, sub); ok {
			return id, nil
		}
	}
	id, err := r.Dir.LookupSubdomain(ctx, sub)
	if err != nil {
		return 0, err
	}
	if r.Cache != nil {
		r.Cache.Set(ctx, sub, id)
	}
	return id, nil
}

// Subdomain extracts the tenant label from a host such as
// "acme.rentdesk.io:8080" or "acme.localhost". It returns "" for bare
// domains, IP addresses and the www label.
func Subdomain(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	labels := strings.Split(host, ".")
	var sub string
	switch {
	case len(labels) == 2 && labels[1] == "localhost":
		sub = labels[0]
	case len(labels) >= 3:
		sub = labels[0]
	}
	if sub == "www" {
		return ""
	}
	return sub
}

// Bound resolves the tenant of an authenticated request. The token claim is
// authoritative; when the host also names a subdomain it must resolve to the
// same tenant, otherwise the request is treated as naming no tenant.
type Bound struct {
	Claim ClaimResolver
	Host  SubdomainResolver
}

func (b Bound) Resolve(ctx context.Context, req Request) (ID, error) {
	id, err := b.Claim.Resolve(ctx, req)
	if err != nil {
		return 0, err
	}
	if b.Host.Dir == nil || Subdomain(req.Host) == "" {
		return id, nil
	}
	hostID, err := b.Host.Resolve(ctx, req)
	if err != nil {
		return 0, err
	}
	if hostID != id {
		return 0, fmt.Errorf("host tenant %d, token tenant %d: %w", hostID, id, ErrTenantNotFound)
	}
	return id, nil
}

// RedisCache keeps subdomain lookups in Redis under "<prefix>:<subdomain>".
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache returns nil when rdb is nil so callers can pass the result
// straight into SubdomainResolver.
func NewRedisCache(rdb *redis.Client, prefix string, ttl time.Duration) Cache {
	if rdb == nil {
		return nil
	}
	if prefix == "" {
		prefix = "tenant"
	}
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) key(sub string) string { return fmt.Sprintf("%s:sub:%s", c.prefix, sub) }

func (c *RedisCache) Get(ctx context.Context, sub string) (ID, bool) {
	n, err := c.rdb.Get(ctx, c.key(sub)).Uint64()
	if err != nil || n == 0 {
		return 0, false
	}
	return ID(n), true
}

func (c *RedisCache) Set(ctx context.Context, sub string, id ID) {
	_ = c.rdb.SetEx(ctx, c.key(sub), uint64(id), c.ttl).Err()
}
