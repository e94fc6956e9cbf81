// Package graphbase coordinates sessions and transactions for a graph
// database client, scoped to the calling execution context.
//
// It arbitrates between a process-wide default session, an optionally
// open transaction, and a synthetic "mock" transaction used when
// callers need commit/rollback callback ordering without a real
// server-side transaction.
//
// This package provides:
// - A Directory facade that resolves "the current session" and "the current transaction" per context
// - A transaction runner that opens, nests and closes transactions, collapsing nested scopes into one commit/rollback boundary
// - A mock transaction variant that preserves callback ordering without touching the driver
package graphbase

import (
	"context"
	"errors"
)

// Sentinel errors surfaced by the Directory.
var (
	// ErrNoSession is returned when a session is required but none is
	// installed for the calling context and no establishment callback
	// (or an empty one) is registered.
	ErrNoSession = errors.New("graphbase: no session configured")

	// ErrNotTaggable is returned when a session cannot carry the result
	// dispatch tag because its adaptor has no mutable options bag.
	ErrNotTaggable = errors.New("graphbase: session adaptor has no options to tag")
)

// Queryer executes a query against whatever context is current:
// a session, a real transaction, or a mock transaction.
type Queryer interface {
	Query(ctx context.Context, cypher string, params map[string]any) (any, error)
}

// Session is the driver-level connection this package coordinates.
// It is intentionally minimal so that driver adaptors and test fakes
// can both satisfy it.
type Session interface {
	Queryer

	// Version reports the server protocol/product version.
	Version(ctx context.Context) (string, error)

	// Adaptor returns the adaptor the session was built from.
	Adaptor() Adaptor

	// BeginTransaction opens a new driver-level transaction.
	BeginTransaction(ctx context.Context) (DriverTransaction, error)
}

// DriverTransaction is an open driver-level transaction.
// It is compatible with explicit transaction objects exposed by graph
// database drivers.
type DriverTransaction interface {
	Queryer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Adaptor builds sessions and carries driver configuration.
type Adaptor interface {
	// Options returns the adaptor's mutable options bag. A nil map
	// means the adaptor cannot be tagged and its sessions cannot be
	// wrapped.
	Options() map[string]any

	// NewSession builds a fresh session bound to this adaptor.
	NewSession() Session
}

// SchemaValidator checks that the model/schema state is consistent
// before transactional work starts. Implementations are supplied by
// the schema subsystem; validation errors propagate to callers
// unmodified.
type SchemaValidator interface {
	Validate(ctx context.Context) error
}
