package graphbase

import (
	"context"
	"strings"
)

// Label is a metadata handle for one node label, bound to the session
// it was resolved against. Index and constraint DDL belongs to the
// schema subsystem; this handle only reads.
type Label struct {
	name    string
	session *WrappedSession
}

// Name returns the label name.
func (l *Label) Name() string {
	return l.name
}

// Count reports the number of nodes carrying the label.
func (l *Label) Count(ctx context.Context) (any, error) {
	// Backticks inside a quoted Cypher identifier are escaped by
	// doubling them.
	name := strings.ReplaceAll(l.name, "`", "``")
	return l.session.Query(ctx, "MATCH (n:`"+name+"`) RETURN count(n)", nil)
}
