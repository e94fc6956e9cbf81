package graphbase

import (
	"context"

	"github.com/google/uuid"
)

type scopeKey struct{}

// scope holds the state owned by one execution context: the current
// session, the synthetic anchor for mock transactions, and the open
// transaction stack (nil when no transaction is open). A scope is
// created by Directory.WithScope and travels in the context; goroutines
// that never bind one share the directory's root scope.
//
// A scope belongs to exactly one goroutine. The transaction stack is
// deliberately unsynchronized: isolation comes from each worker binding
// its own scope, not from locking. The shared root scope is therefore
// only safe for single-goroutine use.
type scope struct {
	id      uuid.UUID
	session slot[*WrappedSession]
	anchor  slot[*mockAnchor]
	stack   *txStack
}

func newScope() *scope {
	return &scope{id: uuid.New()}
}

// WithScope returns a context carrying a fresh execution scope.
// Each concurrent worker must bind its own scope before using the
// directory; session and transaction state never leaks across scopes.
// Contexts without a bound scope fall back to a single shared root
// scope, which is not safe for concurrent transactional use.
func (d *Directory) WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, newScope())
}

// scopeOf resolves the scope for the calling context, falling back to
// the directory's root scope when none was bound.
func (d *Directory) scopeOf(ctx context.Context) *scope {
	if sc, ok := ctx.Value(scopeKey{}).(*scope); ok {
		return sc
	}
	return d.root
}

// mockAnchor is the per-scope stand-in identity a mock transaction is
// keyed on. It is not a session; it only has a stable identity and
// answers version queries by delegating to the real current session.
type mockAnchor struct {
	id  uuid.UUID
	dir *Directory
}

func newMockAnchor(dir *Directory) *mockAnchor {
	return &mockAnchor{id: uuid.New(), dir: dir}
}

// Version reports the server version of the scope's real session.
func (a *mockAnchor) Version(ctx context.Context) (string, error) {
	s, err := a.dir.CurrentSession(ctx)
	if err != nil {
		return "", err
	}
	return s.Version(ctx)
}
