// Package store provides the pipeline-scoped key-value store that carries
// runtime facts across otherwise-isolated task executions.
package store

import "context"

// =============================================================================
// Store Interface
// =============================================================================

// Store is a namespaced byte-string store. Writes are atomic per key; there
// is no transaction spanning multiple keys. Facts are overwritten by later
// "up" cycles, never merged, and orphans from a prior cycle are simply
// ignored by key-by-key lookups.
type Store interface {
	// Put writes value under key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Keys returns the keys under prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}

// =============================================================================
// Fact Key Scheme
// =============================================================================

// Fact kinds persisted per service by the introspection step.
const (
	FactInspect   = "inspect"
	FactStatus    = "status"
	FactIPPrimary = "ip/primary"
	FactIPOthers  = "ip/others"
)

// ServiceKey builds the slash-delimited fact key for a service.
func ServiceKey(service, kind string) string {
	return "/services/" + service + "/" + kind
}

// ServicePrefix is the key prefix shared by all facts of a service.
func ServicePrefix(service string) string {
	return "/services/" + service + "/"
}
