// Package neo4j adapts the official Neo4j Go driver to the graphbase
// session contracts.
package neo4j

import (
	"context"
	"fmt"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/oagudo/graphbase"
)

// Adaptor holds a Neo4j driver and builds sessions from it.
type Adaptor struct {
	driver   driver.DriverWithContext
	database string
	options  map[string]any
}

// Option is a function that configures an Adaptor instance.
type Option func(*Adaptor)

// WithDatabase selects the database sessions run against.
// Default is "neo4j".
func WithDatabase(name string) Option {
	return func(a *Adaptor) {
		a.database = name
	}
}

// New connects to uri with basic auth and returns an adaptor.
func New(uri, username, password string, opts ...Option) (*Adaptor, error) {
	drv, err := driver.NewDriverWithContext(uri, driver.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j adaptor: failed to create driver: %w", err)
	}

	a := &Adaptor{
		driver:   drv,
		database: "neo4j",
		options:  map[string]any{},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// FromConfig builds an adaptor from a loaded graphbase config file.
func FromConfig(cfg graphbase.Config) (*Adaptor, error) {
	opts := []Option{}
	if cfg.Database != "" {
		opts = append(opts, WithDatabase(cfg.Database))
	}
	return New(cfg.URI, cfg.Username, cfg.Password, opts...)
}

// Options returns the adaptor's mutable options bag.
func (a *Adaptor) Options() map[string]any {
	return a.options
}

// NewSession builds a session bound to this adaptor.
func (a *Adaptor) NewSession() graphbase.Session {
	return &session{adaptor: a}
}

// VerifyConnectivity checks that the server behind the driver is
// reachable.
func (a *Adaptor) VerifyConnectivity(ctx context.Context) error {
	return a.driver.VerifyConnectivity(ctx)
}

// Close tears down the underlying driver and its connection pool.
func (a *Adaptor) Close(ctx context.Context) error {
	return a.driver.Close(ctx)
}

type session struct {
	adaptor *Adaptor
}

func (s *session) Adaptor() graphbase.Adaptor {
	return s.adaptor
}

// Query runs cypher in an auto-commit driver session and collects the
// result records eagerly.
func (s *session) Query(ctx context.Context, cypher string, params map[string]any) (any, error) {
	sess := s.newDriverSession(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

// Version reports the server agent string, e.g. "Neo4j/5.24.0".
func (s *session) Version(ctx context.Context) (string, error) {
	info, err := s.adaptor.driver.GetServerInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.Agent(), nil
}

// BeginTransaction opens an explicit transaction on a dedicated driver
// session. The session is released when the transaction resolves.
func (s *session) BeginTransaction(ctx context.Context) (graphbase.DriverTransaction, error) {
	sess := s.newDriverSession(ctx)
	tx, err := sess.BeginTransaction(ctx)
	if err != nil {
		_ = sess.Close(ctx)
		return nil, err
	}
	return &transaction{session: sess, tx: tx}, nil
}

func (s *session) newDriverSession(ctx context.Context) driver.SessionWithContext {
	return s.adaptor.driver.NewSession(ctx, driver.SessionConfig{
		DatabaseName: s.adaptor.database,
	})
}

type transaction struct {
	session driver.SessionWithContext
	tx      driver.ExplicitTransaction
}

func (t *transaction) Query(ctx context.Context, cypher string, params map[string]any) (any, error) {
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

func (t *transaction) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	closeErr := t.session.Close(ctx)
	if err != nil {
		return err
	}
	return closeErr
}

func (t *transaction) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	closeErr := t.session.Close(ctx)
	if err != nil {
		return err
	}
	return closeErr
}
