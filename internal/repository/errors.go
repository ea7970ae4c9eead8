// Package repository implements tenant-scoped data access.
//
// Every method of a tenant-owned repository takes the tenant id as an
// explicit parameter and folds it into the statement: inserts stamp it,
// reads and lists filter on it, updates and deletes match on it. A record
// of another tenant is indistinguishable from a missing one.
package repository

import "errors"

// ErrNotFound is returned when a record does not exist for the calling
// tenant. Records owned by other tenants produce the same error.
var ErrNotFound = errors.New("not found")

// ErrTenantRequired is returned before any SQL runs when the tenant id is
// zero.
var ErrTenantRequired = errors.New("tenant id required")

// ErrDuplicate is returned when a natural key is already taken within the
// tenant (customer key, subdomain, invoice for a booking).
var ErrDuplicate = errors.New("duplicate")

// ErrInUse is returned when a delete is refused because bookings still
// reference the record. Handlers should translate this into an HTTP 409.
var ErrInUse = errors.New("in use")

// ErrSlotTaken is returned when an occupied day of an item is claimed
// twice. The booking writer reports it as a conflict.
var ErrSlotTaken = errors.New("slot already taken")
