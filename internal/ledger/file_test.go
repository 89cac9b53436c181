package ledger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestFileAddHasIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l := OpenFile(path, testLogger())

	assert.False(t, l.Has("k1"))
	require.NoError(t, l.Add("k1"))
	assert.True(t, l.Has("k1"))
	assert.Equal(t, 1, l.Len())

	require.NoError(t, l.Add("k1"))
	assert.Equal(t, 1, l.Len())
}

func TestFileSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	l := OpenFile(path, testLogger())
	require.NoError(t, l.Add("k1"))
	require.NoError(t, l.Add("k2"))

	l2 := OpenFile(path, testLogger())
	assert.True(t, l2.Has("k1"))
	assert.True(t, l2.Has("k2"))
	assert.Equal(t, []string{"k1", "k2"}, l2.Keys())
}

func TestFileCorruptStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := OpenFile(path, testLogger())
	assert.Equal(t, 0, l.Len())

	// Still writable after the corruption event.
	require.NoError(t, l.Add("k1"))
	assert.True(t, OpenFile(path, testLogger()).Has("k1"))
}

func TestFileMissingStartsEmpty(t *testing.T) {
	l := OpenFile(filepath.Join(t.TempDir(), "nope", "ledger.json"), testLogger())
	assert.Equal(t, 0, l.Len())
	require.NoError(t, l.Add("k1"))
}
