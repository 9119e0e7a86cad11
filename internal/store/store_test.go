package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tracker-backend/internal/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:", zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate(context.Background()))
	return database
}

func seedProject(t *testing.T, ps *ProjectStore, name string) *Project {
	t.Helper()
	p, err := ps.CreateProject(context.Background(), name, "")
	require.NoError(t, err)
	return p
}
