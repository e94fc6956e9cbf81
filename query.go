package graphbase

import "context"

// QueryFactory builds the query object handed out by Directory.NewQuery.
type QueryFactory func(session Queryer, opts map[string]any) *CypherQuery

// CypherQuery is the default query object: query text and parameters
// bound to the session they will run against, plus the construction
// options they were built with. Full query building lives outside this
// package; install a richer factory with WithQueryFactory.
type CypherQuery struct {
	session Queryer
	cypher  string
	params  map[string]any
	opts    map[string]any
}

func newCypherQuery(session Queryer, opts map[string]any) *CypherQuery {
	merged := make(map[string]any, len(opts))
	for k, v := range opts {
		merged[k] = v
	}
	return &CypherQuery{
		session: session,
		params:  map[string]any{},
		opts:    merged,
	}
}

// Cypher sets the query text.
func (q *CypherQuery) Cypher(text string) *CypherQuery {
	q.cypher = text
	return q
}

// Param adds a single query parameter.
func (q *CypherQuery) Param(name string, value any) *CypherQuery {
	q.params[name] = value
	return q
}

// Option returns a construction option by name.
func (q *CypherQuery) Option(name string) (any, bool) {
	v, ok := q.opts[name]
	return v, ok
}

// Run executes the query against the bound session.
func (q *CypherQuery) Run(ctx context.Context) (any, error) {
	return q.session.Query(ctx, q.cypher, q.params)
}
