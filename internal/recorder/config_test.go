package recorder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{ModeKey, ReplayIdxKey, DBNameKey} {
		t.Setenv(key, "") // register restoration
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "record", cfg.Mode)
	assert.Equal(t, DefaultDBName, cfg.DBPath)
	assert.Empty(t, cfg.ReplayIdx)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv(ModeKey, "replay")
	t.Setenv(ReplayIdxKey, "3")
	t.Setenv(DBNameKey, "/tmp/other_db.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "replay", cfg.Mode)
	assert.Equal(t, "3", cfg.ReplayIdx)
	assert.Equal(t, "/tmp/other_db.json", cfg.DBPath)
}

func TestModeFallsBackToRecord(t *testing.T) {
	assert.Equal(t, ModeRecord, Config{Mode: "record"}.mode(nil))
	assert.Equal(t, ModeReplay, Config{Mode: "replay"}.mode(nil))
	assert.Equal(t, ModeRecord, Config{Mode: "rewind"}.mode(nil))
}

func TestReplayIndexRequired(t *testing.T) {
	_, err := Config{}.replayIndex()
	require.Error(t, err)
	assert.True(t, IsBadConfig(err))
}

func TestReplayIndexMustBeInteger(t *testing.T) {
	_, err := Config{ReplayIdx: "latest"}.replayIndex()
	require.Error(t, err)
	assert.True(t, IsBadConfig(err))

	idx, err := Config{ReplayIdx: "-1"}.replayIndex()
	require.NoError(t, err)
	assert.Equal(t, -1, idx)
}
