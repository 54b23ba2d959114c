package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/SpatiumPortae/tftcp/cmd/tftcp/tui"
	"github.com/SpatiumPortae/tftcp/internal/client"
	"github.com/SpatiumPortae/tftcp/protocol/transfer"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModel(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "notes.txt", []byte("hello"), 0644))
	require.NoError(t, afero.WriteFile(fs, "received_notes.txt", []byte("old"), 0644))

	t.Run("write uses local file size", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Write, "notes.txt", &client.Config{Fs: fs})
		assert.Equal(t, showConnecting, m.state)
		assert.Equal(t, int64(5), m.transferProgress.PayloadSize)
		assert.Equal(t, "notes.txt", m.localPath)
	})

	t.Run("read prompts before overwriting", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Read, "notes.txt", &client.Config{Fs: fs}, WithPromptOverwrite(true))
		assert.Equal(t, showOverwritePrompt, m.state)
		assert.Equal(t, "received_notes.txt", m.localPath)
		assert.True(t, m.keys.OverwritePromptYes.Enabled())
	})

	t.Run("read without prompt", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Read, "notes.txt", &client.Config{Fs: fs})
		assert.Equal(t, showConnecting, m.state)
	})

	t.Run("read of new file never prompts", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Read, "other.txt", &client.Config{Fs: fs}, WithPromptOverwrite(true))
		assert.Equal(t, showConnecting, m.state)
	})
}

func TestUpdate(t *testing.T) {
	fs := afero.NewMemMapFs()

	t.Run("done", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Read, "notes.txt", &client.Config{Fs: fs})
		res := client.Result{Operation: transfer.Read, Filename: "notes.txt", LocalPath: "received_notes.txt", Bytes: 5}
		updated, cmd := m.Update(doneMsg{result: res})
		assert.NotNil(t, cmd)
		um := updated.(model)
		assert.Equal(t, showFinished, um.state)
		assert.Equal(t, res, um.result)
	})

	t.Run("failed", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Read, "notes.txt", &client.Config{Fs: fs})
		oracle := errors.New("boom")
		updated, cmd := m.Update(failedMsg{err: oracle})
		assert.NotNil(t, cmd)
		um := updated.(model)
		assert.Equal(t, showFailed, um.state)
		assert.ErrorIs(t, um.err, oracle)
	})

	t.Run("progress starts transfer", func(t *testing.T) {
		m := newModel(context.Background(), transfer.Write, "notes.txt", &client.Config{Fs: fs})
		updated, _ := m.Update(tui.ProgressMsg(7))
		um := updated.(model)
		assert.Equal(t, showTransferring, um.state)
		assert.Equal(t, int64(7), um.transferProgress.BytesTransferred())
	})
}
