package graphbase

// Result dispatch tag. Sessions installed through the Directory carry
// it in their adaptor options so drivers unwrap query results into
// native entity objects instead of raw protocol values.
const (
	wrapLevelOption = "wrap_level"
	wrapLevelEntity = "entity"
)

// WrappedSession is a session tagged for entity-level result dispatch.
// All sessions handed out by the Directory are wrapped.
type WrappedSession struct {
	Session
}

// Wrap tags a session for entity-level result dispatch and returns the
// wrapped handle. Wrapping is idempotent: an already-wrapped session is
// returned as-is, and re-tagging assigns the same tag. Returns
// ErrNotTaggable when the session's adaptor has no mutable options bag.
func Wrap(s Session) (*WrappedSession, error) {
	if ws, ok := s.(*WrappedSession); ok {
		ws.Adaptor().Options()[wrapLevelOption] = wrapLevelEntity
		return ws, nil
	}
	a := s.Adaptor()
	if a == nil || a.Options() == nil {
		return nil, ErrNotTaggable
	}
	a.Options()[wrapLevelOption] = wrapLevelEntity
	return &WrappedSession{Session: s}, nil
}
