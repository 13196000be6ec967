package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDirAndAppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "graph.db")
	cfg := Config{Path: path, BusyTimeout: 2 * time.Second}

	db, err := cfg.Open(context.Background())
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Dir(path))
	require.NoError(t, err)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var busy int64
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, int64(2000), busy)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := (&Config{}).Open(context.Background())
	require.Error(t, err)
}
