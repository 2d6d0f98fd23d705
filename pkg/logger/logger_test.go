package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("should truncate existing log file when preserve is false", func(t *testing.T) {
		path := filepath.Join(tmpDir, "truncate.log")
		err := os.WriteFile(path, []byte("old session output\n"), 0644)
		require.NoError(t, err)

		l, file, err := New("debug", path, false)
		require.NoError(t, err)
		l.Info("fresh session")
		require.NoError(t, file.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "old session output")
		assert.Contains(t, string(content), "fresh session")
	})

	t.Run("should append to existing log file when preserve is true", func(t *testing.T) {
		path := filepath.Join(tmpDir, "append.log")
		err := os.WriteFile(path, []byte("previous line\n"), 0644)
		require.NoError(t, err)

		l, file, err := New("debug", path, true)
		require.NoError(t, err)
		l.Info("new line")
		require.NoError(t, file.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "previous line")
		assert.Contains(t, string(content), "new line")
	})

	t.Run("should create log directory if it doesn't exist", func(t *testing.T) {
		path := filepath.Join(tmpDir, "nested", "dir", "test.log")

		_, file, err := New("info", path, false)
		require.NoError(t, err)
		require.NoError(t, file.Close())

		_, err = os.Stat(path)
		assert.NoError(t, err)
	})

	t.Run("should respect the configured level", func(t *testing.T) {
		path := filepath.Join(tmpDir, "level.log")

		l, file, err := New("warn", path, false)
		require.NoError(t, err)
		l.Debug("too quiet")
		l.Warn("loud enough")
		require.NoError(t, file.Close())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(content), "too quiet")
		assert.Contains(t, string(content), "loud enough")
	})
}

func TestWithComponent(t *testing.T) {
	t.Run("should tag entries with the component name", func(t *testing.T) {
		var buf bytes.Buffer
		SetOutput(&buf)
		defer Reset()

		log := WithComponent("stream")
		log.Debug("read line", "bytes", 42)

		out := buf.String()
		assert.Contains(t, out, "stream")
		assert.Contains(t, out, "read line")
		assert.Contains(t, out, "bytes")
	})

	t.Run("should be a no-op before Init", func(t *testing.T) {
		Reset()

		log := WithComponent("orphan")
		assert.NotPanics(t, func() {
			log.Info("dropped on the floor")
		})
	})
}

func TestPackageLevelFunctions(t *testing.T) {
	t.Run("should log key value pairs through the default logger", func(t *testing.T) {
		var buf bytes.Buffer
		SetOutput(&buf)
		defer Reset()

		Info("session opened", "session_id", "s1", "live", true)

		out := buf.String()
		assert.Contains(t, out, "session opened")
		assert.Contains(t, out, "session_id")
		assert.Contains(t, out, "s1")
	})

	t.Run("should not panic when the default logger is missing", func(t *testing.T) {
		Reset()

		assert.NotPanics(t, func() {
			Debug("nobody home")
			Info("nobody home")
			Warn("nobody home")
			Error("nobody home")
		})
	})
}
