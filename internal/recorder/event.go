package recorder

import (
	"strings"
	"time"
)

// dispatchPathVar is the environment variable an Event derives its
// symbolic name from, e.g. "hooks/install" -> "install".
const dispatchPathVar = "JUJU_DISPATCH_PATH"

// Event is the triggering unit of work: a snapshot of the invocation
// environment plus a timestamp. Immutable once captured.
type Event struct {
	Env       map[string]string `json:"env"`
	Timestamp string            `json:"timestamp"`
}

// Name derives the symbolic event name from the dispatch path.
func (e Event) Name() string {
	path := e.Env[dispatchPathVar]
	if _, name, ok := strings.Cut(path, "/"); ok {
		return name
	}
	return path
}

// Time parses the captured timestamp.
func (e Event) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, e.Timestamp)
}

// Context maps qualified memo names to their caches for one scene.
type Context struct {
	Memos map[string]*Memo `json:"memos"`
}

// Scene pairs one Event with the memos recorded while handling it.
// The scene's position in Data.Scenes is its replay address.
type Scene struct {
	Event   Event   `json:"event"`
	Context Context `json:"context"`
}

// memo returns the named memo, or nil.
func (s *Scene) memo(name string) *Memo {
	return s.Context.Memos[name]
}

// setMemo stores a memo, allocating the context map on first use.
func (s *Scene) setMemo(name string, m *Memo) {
	if s.Context.Memos == nil {
		s.Context.Memos = map[string]*Memo{}
	}
	s.Context.Memos[name] = m
}

// Data is the whole persisted store: the ordered scene timeline.
type Data struct {
	Scenes []*Scene `json:"scenes"`
}

// SceneAt addresses a scene by index. Negative indices count from the
// end, so -1 is the most recently recorded scene.
func (d *Data) SceneAt(idx int) (*Scene, bool) {
	if idx < 0 {
		idx += len(d.Scenes)
	}
	if idx < 0 || idx >= len(d.Scenes) {
		return nil, false
	}
	return d.Scenes[idx], true
}
