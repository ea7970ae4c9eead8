// Package tenant carries the identity of the tenant a unit of work runs for.
//
// The tenant id only ever travels inside a context.Context. HTTP requests get
// it from the TenantContext middleware; background work binds it explicitly
// with WithID before touching any repository.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// ID identifies a tenant. The zero value means "no tenant".
type ID uint64

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ErrTenantNotFound is returned when no tenant is bound to a context or a
// request cannot be mapped to a known tenant.
var ErrTenantNotFound = errors.New("tenant not found")

type ctxKey struct{}

// WithID returns a copy of ctx carrying id.
func WithID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the tenant bound to ctx.
func FromContext(ctx context.Context) (ID, error) {
	id, ok := ctx.Value(ctxKey{}).(ID)
	if !ok || id == 0 {
		return 0, ErrTenantNotFound
	}
	return id, nil
}

// ParseID parses a decimal tenant id. Zero is rejected.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("parse tenant id %q: %w", s, ErrTenantNotFound)
	}
	return ID(n), nil
}
