package ledger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteAddHasIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	defer l.Close()

	assert.False(t, l.Has("k1"))
	require.NoError(t, l.Add("k1"))
	require.NoError(t, l.Add("k1"))
	assert.True(t, l.Has("k1"))
	assert.Equal(t, 1, l.Len())
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	require.NoError(t, l.Add("k1"))
	require.NoError(t, l.Add("k2"))
	require.NoError(t, l.Close())

	l2, err := OpenSQLite(path, testLogger())
	require.NoError(t, err)
	defer l2.Close()
	assert.True(t, l2.Has("k1"))
	assert.Equal(t, []string{"k1", "k2"}, l2.Keys())
}
