package recorder

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gu1nness/jhack/internal/codec"
)

func fixedClock(t *testing.T) func() time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2021-06-01T12:00:00Z")
	require.NoError(t, err)
	return func() time.Time { return ts }
}

func testEnviron() []string {
	return []string{
		"JUJU_DISPATCH_PATH=hooks/config-changed",
		"JUJU_UNIT_NAME=trfk/0",
		"MALFORMED-NO-SEPARATOR",
	}
}

func TestSetupRecordAppendsExactlyOneScene(t *testing.T) {
	path := tempDB(t)
	s := NewSession(Config{Mode: "record", DBPath: path},
		WithClock(fixedClock(t)),
		WithEnviron(testEnviron),
		WithMemoLog(&bytes.Buffer{}),
	)
	require.NoError(t, s.Setup())

	data, err := Load(path)
	require.NoError(t, err)
	require.Len(t, data.Scenes, 1)

	event := data.Scenes[0].Event
	assert.Equal(t, "config-changed", event.Name())
	assert.Equal(t, "trfk/0", event.Env["JUJU_UNIT_NAME"])
	assert.NotContains(t, event.Env, "MALFORMED-NO-SEPARATOR")

	got, err := event.Time()
	require.NoError(t, err)
	assert.Equal(t, fixedClock(t)(), got)
}

func TestSetupRecordTwiceAppendsTwoScenes(t *testing.T) {
	path := tempDB(t)
	for i := 0; i < 2; i++ {
		s := NewSession(Config{Mode: "record", DBPath: path},
			WithClock(fixedClock(t)), WithEnviron(testEnviron), WithMemoLog(&bytes.Buffer{}))
		require.NoError(t, s.Setup())
	}

	data, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, data.Scenes, 2)
}

func TestSetupReplayResetsAllCursors(t *testing.T) {
	path := tempDB(t)

	makeMemo := func(cursor int) *Memo {
		m := NewMemo(PolicyStrict, codec.DefaultPair)
		m.CacheCall("a", "1")
		m.CacheCall("b", "2")
		m.Cursor = cursor
		return m
	}
	sceneA := &Scene{Event: Event{Env: map[string]string{}, Timestamp: "t0"}}
	sceneA.setMemo("A.first", makeMemo(2))
	sceneB := &Scene{Event: Event{Env: map[string]string{}, Timestamp: "t1"}}
	sceneB.setMemo("A.second", makeMemo(1))
	require.NoError(t, Commit(path, &Data{Scenes: []*Scene{sceneA, sceneB}}))

	s := NewSession(Config{Mode: "replay", ReplayIdx: "0", DBPath: path}, WithMemoLog(&bytes.Buffer{}))
	require.NoError(t, s.Setup())

	data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, data.Scenes[0].memo("A.first").Cursor)
	assert.Equal(t, 0, data.Scenes[1].memo("A.second").Cursor)
}

func TestResetCursorsSubset(t *testing.T) {
	path := tempDB(t)

	scenes := make([]*Scene, 3)
	for i := range scenes {
		m := NewMemo(PolicyStrict, codec.DefaultPair)
		m.CacheCall("a", "1")
		m.Cursor = 1
		scenes[i] = &Scene{Event: Event{Env: map[string]string{}, Timestamp: "t"}}
		scenes[i].setMemo("A.call", m)
	}
	require.NoError(t, Commit(path, &Data{Scenes: scenes}))

	require.NoError(t, ResetCursors(path, 1))

	data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Scenes[0].memo("A.call").Cursor)
	assert.Equal(t, 0, data.Scenes[1].memo("A.call").Cursor)
	assert.Equal(t, 1, data.Scenes[2].memo("A.call").Cursor)
}

func TestResetCursorsOutOfRange(t *testing.T) {
	path := tempDB(t)
	require.NoError(t, Commit(path, &Data{}))

	err := ResetCursors(path, 5)
	require.Error(t, err)
	assert.True(t, IsBadConfig(err))
}

func TestBannerPrintedOnce(t *testing.T) {
	path := tempDB(t)
	var out bytes.Buffer
	s := NewSession(Config{Mode: "record", DBPath: path},
		WithClock(fixedClock(t)), WithEnviron(testEnviron), WithMemoLog(&out))

	require.NoError(t, s.Setup())
	require.NoError(t, s.Setup())

	assert.Equal(t, "MEMO: recording\n", out.String())
}

func TestSessionModeFallback(t *testing.T) {
	s := NewSession(Config{Mode: "rewind", DBPath: tempDB(t)}, WithMemoLog(&bytes.Buffer{}))
	assert.Equal(t, ModeRecord, s.Mode())
	assert.NotEmpty(t, s.Token())
}

func TestSessionModeWarningUsesInjectedLogger(t *testing.T) {
	var logged bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logged, nil))

	s := NewSession(Config{Mode: "rewind", DBPath: tempDB(t)},
		WithLogger(log), WithMemoLog(&bytes.Buffer{}))

	assert.Equal(t, ModeRecord, s.Mode())
	assert.Contains(t, logged.String(), "invalid memo mode")
}
