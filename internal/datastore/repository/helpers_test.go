package repository

import (
	"path/filepath"
	"testing"

	"github.com/gridsight/thermalwatch/internal/datastore"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newTestDB opens a migrated SQLite database in a temp dir.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	m, err := datastore.NewSQLiteManager(datastore.SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, m.Initialize())
	t.Cleanup(func() { _ = m.Close() })

	return m.DB()
}

func strPtr(s string) *string { return &s }
