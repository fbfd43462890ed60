package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gu1nness/jhack/internal/codec"
	"github.com/Gu1nness/jhack/internal/recorder"
)

// seedDB commits a database with two recorded scenes and returns its
// path. The first scene carries one strict memo that has already been
// replayed once (cursor advanced past the first call).
func seedDB(t *testing.T) string {
	t.Helper()

	statusMemo := recorder.NewMemo(recorder.PolicyStrict, codec.DefaultPair)
	statusMemo.CacheCall(`[[],{}]`, `"active"`)
	statusMemo.CacheCall(`[[],{}]`, `"blocked"`)
	statusMemo.Cursor = 1

	leaderMemo := recorder.NewMemo(recorder.PolicyStrict, codec.DefaultPair)
	leaderMemo.CacheCall(`[[],{}]`, `true`)

	data := &recorder.Data{Scenes: []*recorder.Scene{
		{
			Event: recorder.Event{
				Env:       map[string]string{"JUJU_DISPATCH_PATH": "hooks/install"},
				Timestamp: "2021-06-01T12:00:00Z",
			},
			Context: recorder.Context{Memos: map[string]*recorder.Memo{
				"ModelBackend.status_get": statusMemo,
			}},
		},
		{
			Event: recorder.Event{
				Env:       map[string]string{"JUJU_DISPATCH_PATH": "hooks/config-changed"},
				Timestamp: "2021-06-01T12:05:00Z",
			},
			Context: recorder.Context{Memos: map[string]*recorder.Memo{
				"ModelBackend.status_get": leaderMemo,
				"ModelBackend.is_leader":  recorder.NewMemo(recorder.PolicyLoose, codec.DefaultPair),
			}},
		},
	}}

	path := filepath.Join(t.TempDir(), "event_db.json")
	require.NoError(t, recorder.Commit(path, data))
	return path
}

func emptyDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event_db.json")
	require.NoError(t, recorder.Commit(path, &recorder.Data{}))
	return path
}

func corruptDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "event_db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	return path
}
