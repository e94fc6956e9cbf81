package graphbase

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// EstablishFunc lazily builds a session the first time one is needed.
// It is registered process-wide; per-context decisions belong inside
// the callback itself.
type EstablishFunc func(ctx context.Context) (Session, error)

// Directory is the entry point for resolving the current session and
// the current transaction. Construct one per process with New and pass
// it around explicitly; all mutable per-context state lives in scopes
// bound via WithScope.
type Directory struct {
	root *scope

	mu        sync.RWMutex
	establish EstablishFunc

	validator      SchemaValidator
	migrationCheck func() bool
	queryFactory   QueryFactory

	loggerOnce sync.Once
	logger     *zerolog.Logger
}

// Option is a function that configures a Directory instance.
type Option func(*Directory)

// WithLogger sets the directory logger.
// If not set, a stderr logger with timestamps is lazily created.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Directory) {
		d.logger = &l
	}
}

// WithSchemaValidator sets the validator consulted before transactional
// work and query dispatch. Without one, no validation happens.
func WithSchemaValidator(v SchemaValidator) Option {
	return func(d *Directory) {
		d.validator = v
	}
}

// WithMigrationCheck sets the predicate reporting that migrations are
// currently running. Schema validation is suppressed entirely while it
// returns true.
func WithMigrationCheck(fn func() bool) Option {
	return func(d *Directory) {
		d.migrationCheck = fn
	}
}

// WithEstablishment registers the establishment callback at
// construction time. Equivalent to calling SetEstablishment.
func WithEstablishment(fn EstablishFunc) Option {
	return func(d *Directory) {
		d.establish = fn
	}
}

// WithQueryFactory replaces the default query object factory used by
// NewQuery.
func WithQueryFactory(f QueryFactory) Option {
	return func(d *Directory) {
		d.queryFactory = f
	}
}

// New creates a Directory with the given options.
func New(opts ...Option) *Directory {
	d := &Directory{
		root:         newScope(),
		queryFactory: newCypherQuery,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// SetEstablishment registers the process-wide factory used to lazily
// establish a session when CurrentSession finds none. Replaces any
// previously registered callback.
func (d *Directory) SetEstablishment(fn EstablishFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.establish = fn
}

func (d *Directory) establishFn() EstablishFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.establish
}

// CurrentSession returns the calling context's session, lazily
// establishing one through the registered establishment callback the
// first time. Returns ErrNoSession when no session is installed and no
// callback is registered, or the callback yields none.
func (d *Directory) CurrentSession(ctx context.Context) (*WrappedSession, error) {
	sc := d.scopeOf(ctx)
	return sc.session.getOrInit(func() (*WrappedSession, error) {
		fn := d.establishFn()
		if fn == nil {
			return nil, ErrNoSession
		}
		s, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, ErrNoSession
		}
		return Wrap(s)
	})
}

// SetCurrentSession wraps s and installs it as the calling context's
// session, bypassing lazy establishment.
func (d *Directory) SetCurrentSession(ctx context.Context, s Session) (*WrappedSession, error) {
	ws, err := Wrap(s)
	if err != nil {
		return nil, err
	}
	d.scopeOf(ctx).session.put(ws)
	return ws, nil
}

// SetCurrentAdaptor builds a session from a raw adaptor and installs it
// as the calling context's session.
func (d *Directory) SetCurrentAdaptor(ctx context.Context, a Adaptor) (*WrappedSession, error) {
	return d.SetCurrentSession(ctx, a.NewSession())
}

// CurrentTransaction returns the innermost open transaction handle for
// the calling context, or nil when none is open. The schema validator
// runs first unless migrations are in progress.
func (d *Directory) CurrentTransaction(ctx context.Context) (*Tx, error) {
	if err := d.validateSchema(ctx); err != nil {
		return nil, err
	}
	sc := d.scopeOf(ctx)
	if sc.stack == nil || len(sc.stack.handles) == 0 {
		return nil, nil
	}
	return sc.stack.handles[len(sc.stack.handles)-1], nil
}

// CurrentTransactionOrSession returns the dispatch target for issuing a
// query: the open transaction when one exists, otherwise the current
// session.
func (d *Directory) CurrentTransactionOrSession(ctx context.Context) (Queryer, error) {
	tx, err := d.CurrentTransaction(ctx)
	if err != nil {
		return nil, err
	}
	if tx != nil {
		return tx, nil
	}
	return d.CurrentSession(ctx)
}

// Query runs a query against the current transaction or session.
func (d *Directory) Query(ctx context.Context, cypher string, params map[string]any) (any, error) {
	q, err := d.CurrentTransactionOrSession(ctx)
	if err != nil {
		return nil, err
	}
	return q.Query(ctx, cypher, params)
}

// NewTransaction validates the schema and opens a new transaction
// handle bound to the current session. The caller owns its lifecycle
// and must Commit, Rollback or Close it. When a scope is already open
// for this context the handle nests inside it.
func (d *Directory) NewTransaction(ctx context.Context) (*Tx, error) {
	if err := d.validateSchema(ctx); err != nil {
		return nil, err
	}
	return d.pushTx(ctx, true)
}

// NewQuery builds a query object bound to the current session, merged
// with the caller-supplied options.
func (d *Directory) NewQuery(ctx context.Context, opts map[string]any) (*CypherQuery, error) {
	s, err := d.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return d.queryFactory(s, opts), nil
}

// Label returns a label-metadata handle bound to the current session.
func (d *Directory) Label(ctx context.Context, name string) (*Label, error) {
	s, err := d.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	return &Label{name: name, session: s}, nil
}

// Logger returns the directory logger, lazily initializing a stderr
// logger when none was configured.
func (d *Directory) Logger() *zerolog.Logger {
	d.loggerOnce.Do(func() {
		if d.logger == nil {
			l := zerolog.New(os.Stderr).With().Timestamp().Logger()
			d.logger = &l
		}
	})
	return d.logger
}

func (d *Directory) validateSchema(ctx context.Context) error {
	if d.validator == nil {
		return nil
	}
	if d.migrationCheck != nil && d.migrationCheck() {
		return nil
	}
	return d.validator.Validate(ctx)
}
