package config

import "time"

// TenantCacheConfig controls the Redis cache in front of subdomain to tenant
// lookups. It is only used when a Redis client is available.
type TenantCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadTenantCacheConfig reads TENANT_CACHE_* variables.
func LoadTenantCacheConfig() TenantCacheConfig {
	c := TenantCacheConfig{
		Enabled: envBool("TENANT_CACHE_ENABLED", true),
		TTL:     envDur("TENANT_CACHE_TTL", 5*time.Minute),
		Prefix:  envStr("TENANT_CACHE_PREFIX", "tenant"),
	}
	if c.TTL <= 0 {
		c.TTL = time.Minute
	}
	return c
}
