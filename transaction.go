package graphbase

import (
	"context"
	"errors"
	"fmt"
)

// ErrTxClosed is returned when a transaction handle is used after it
// has been closed.
var ErrTxClosed = errors.New("graphbase: transaction already closed")

// TxWork is the caller-supplied block executed by RunInTransaction.
// The returned value is handed back to the RunInTransaction caller; the
// returned error rolls the transaction scope back and propagates
// unchanged.
type TxWork func(ctx context.Context, tx *Tx) (any, error)

// Tx is one nesting level of a transaction scope. Only the outermost
// handle of a stack performs the real commit or rollback; inner handles
// register callbacks and unwind their level. Mock and real scopes hand
// out the same handle type, so callers never branch on the variant.
type Tx struct {
	stack *txStack
	level int

	afterCommit   []func()
	afterRollback []func()

	failed bool
	closed bool
}

// Query dispatches through the open transaction scope: the driver
// transaction for real scopes, the current session for mock scopes.
func (t *Tx) Query(ctx context.Context, cypher string, params map[string]any) (any, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	return t.stack.root.queryer().Query(ctx, cypher, params)
}

// AfterCommit registers fn to run once the outermost handle commits.
// Callbacks registered at inner nesting levels fire before callbacks
// registered at outer ones, each list in registration order, and all
// strictly after the single commit.
func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

// AfterRollback registers fn to run if the scope rolls back.
func (t *Tx) AfterRollback(fn func()) {
	t.afterRollback = append(t.afterRollback, fn)
}

// MarkFailed poisons the whole scope: the outermost close rolls back
// instead of committing, and commit callbacks are discarded.
func (t *Tx) MarkFailed() {
	t.failed = true
}

// Closed reports whether this handle has been closed.
func (t *Tx) Closed() bool {
	return t.closed
}

// Depth reports the nesting depth of this handle, 0 being outermost.
func (t *Tx) Depth() int {
	return t.level
}

// Commit closes this handle successfully. Only when it is the
// outermost handle of an unfailed scope does the driver commit happen.
func (t *Tx) Commit(ctx context.Context) error {
	return t.Close(ctx)
}

// Rollback fails the scope and closes this handle.
func (t *Tx) Rollback(ctx context.Context) error {
	t.MarkFailed()
	return t.Close(ctx)
}

// Close unwinds one nesting level. Inner levels only record their
// callbacks and decrement the stack; the outermost level resolves the
// scope (commit or rollback) and fires the accumulated callbacks.
func (t *Tx) Close(ctx context.Context) error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true

	st := t.stack
	if t.level >= len(st.handles) || st.handles[t.level] != t {
		// Already unwound by an out-of-order outer close.
		return ErrTxClosed
	}
	// Closing an outer handle with inner handles still open abandons
	// them; the scope cannot commit in that state.
	if len(st.handles) > t.level+1 {
		st.failed = true
	}
	st.handles = st.handles[:t.level]

	if t.failed {
		st.failed = true
	}
	if !st.failed {
		st.pendingCommit = append(st.pendingCommit, t.afterCommit...)
	}
	st.pendingRollback = append(st.pendingRollback, t.afterRollback...)

	if len(st.handles) > 0 {
		return nil
	}
	return st.resolve(ctx)
}

// txStack is the per-scope transaction stack: one root (real or mock)
// plus one handle per open nesting level.
type txStack struct {
	root    rootTx
	handles []*Tx

	pendingCommit   []func()
	pendingRollback []func()
	failed          bool

	onRelease func()
}

func (st *txStack) push() *Tx {
	t := &Tx{stack: st, level: len(st.handles)}
	st.handles = append(st.handles, t)
	return t
}

// resolve performs the single commit/rollback boundary of the scope and
// fires the appropriate callback list, then detaches the stack from its
// scope so the next transaction starts clean.
func (st *txStack) resolve(ctx context.Context) error {
	if st.onRelease != nil {
		st.onRelease()
	}
	if st.failed {
		err := st.root.rollback(ctx)
		fire(st.pendingRollback)
		return err
	}
	if err := st.root.commit(ctx); err != nil {
		fire(st.pendingRollback)
		return fmt.Errorf("graphbase: failed to commit transaction: %w", err)
	}
	fire(st.pendingCommit)
	return nil
}

func fire(callbacks []func()) {
	for _, fn := range callbacks {
		fn()
	}
}

// rootTx resolves the outermost nesting level of a scope.
type rootTx interface {
	queryer() Queryer
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
}

// realRoot drives an open driver-level transaction.
type realRoot struct {
	driver DriverTransaction
}

func (r *realRoot) queryer() Queryer { return r.driver }

func (r *realRoot) commit(ctx context.Context) error { return r.driver.Commit(ctx) }

func (r *realRoot) rollback(ctx context.Context) error { return r.driver.Rollback(ctx) }

// mockRoot preserves the callback and closing behavior of a real root
// without any driver transaction. It is keyed on the scope's synthetic
// anchor, never on a real session, so nesting on top of it stays mock
// all the way down. Queries inside a mock scope dispatch to the current
// session, resolved lazily so a mock scope that never queries needs no
// session at all.
type mockRoot struct {
	anchor *mockAnchor
	dir    *Directory
}

func (m *mockRoot) queryer() Queryer { return m }

func (m *mockRoot) Query(ctx context.Context, cypher string, params map[string]any) (any, error) {
	s, err := m.dir.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return s.Query(ctx, cypher, params)
}

func (m *mockRoot) commit(context.Context) error { return nil }

func (m *mockRoot) rollback(context.Context) error { return nil }

// RunInTransaction executes fn inside a transaction scope and returns
// fn's result.
//
// With forceReal false and no scope open, fn runs inside a mock
// transaction: callbacks and closing behave exactly like the real
// thing, but no driver transaction is opened. With forceReal true, or
// when a scope (real or mock) is already open for this context, fn
// nests one level deeper; only the outermost level commits or rolls
// back against the driver.
//
// Errors returned by fn roll the scope back at the outermost level and
// propagate unchanged, never wrapped. A panic in fn likewise rolls the
// scope back before it unwinds further.
func (d *Directory) RunInTransaction(ctx context.Context, forceReal bool, fn TxWork) (any, error) {
	tx, err := d.pushTx(ctx, forceReal)
	if err != nil {
		return nil, err
	}

	// Both return paths below close the handle; reaching the deferred
	// close with it still open means fn panicked (or bailed out of the
	// goroutine), and the scope must not leak into the next call.
	defer func() {
		if tx.Closed() {
			return
		}
		tx.MarkFailed()
		if closeErr := tx.Close(ctx); closeErr != nil {
			d.Logger().Warn().Err(closeErr).
				Stringer("scope", d.scopeOf(ctx).id).
				Msg("rollback after transaction body panic")
		}
	}()

	res, err := fn(ctx, tx)
	if err != nil {
		tx.MarkFailed()
		if closeErr := tx.Close(ctx); closeErr != nil {
			d.Logger().Warn().Err(closeErr).
				Stringer("scope", d.scopeOf(ctx).id).
				Msg("rollback after failed transaction body")
		}
		return nil, err
	}
	if err := tx.Close(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// pushTx opens a new nesting level on the calling context's stack,
// opening the stack itself first when none is open.
func (d *Directory) pushTx(ctx context.Context, forceReal bool) (*Tx, error) {
	sc := d.scopeOf(ctx)
	if sc.stack == nil {
		root, err := d.newRoot(ctx, sc, forceReal)
		if err != nil {
			return nil, err
		}
		st := &txStack{root: root}
		st.onRelease = func() { sc.stack = nil }
		sc.stack = st
	}
	return sc.stack.push(), nil
}

func (d *Directory) newRoot(ctx context.Context, sc *scope, forceReal bool) (rootTx, error) {
	if !forceReal {
		anchor, err := sc.anchor.getOrInit(func() (*mockAnchor, error) {
			return newMockAnchor(d), nil
		})
		if err != nil {
			return nil, err
		}
		d.Logger().Debug().
			Stringer("anchor", anchor.id).
			Msg("opening mock transaction scope")
		return &mockRoot{anchor: anchor, dir: d}, nil
	}
	s, err := d.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	driver, err := s.BeginTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("graphbase: failed to begin transaction: %w", err)
	}
	return &realRoot{driver: driver}, nil
}
