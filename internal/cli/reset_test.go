package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gu1nness/jhack/internal/recorder"
)

func TestResetAllCursors(t *testing.T) {
	dbPath := seedDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Database: dbPath, Format: "text"}
	cmd := NewResetCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "all scenes")

	data, err := recorder.Load(dbPath)
	require.NoError(t, err)
	assert.Equal(t, 0, data.Scenes[0].Context.Memos["ModelBackend.status_get"].Cursor)
}

func TestResetSelectedScene(t *testing.T) {
	dbPath := seedDB(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Database: dbPath, Format: "text"}
	cmd := NewResetCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"0"})

	require.NoError(t, cmd.Execute())

	data, err := recorder.Load(dbPath)
	require.NoError(t, err)
	assert.Equal(t, 0, data.Scenes[0].Context.Memos["ModelBackend.status_get"].Cursor)
}

func TestResetSceneOutOfRange(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Database: seedDB(t), Format: "text"}
	cmd := NewResetCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"9"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestResetBadIndexArgument(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Database: seedDB(t), Format: "text"}
	cmd := NewResetCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"last"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
