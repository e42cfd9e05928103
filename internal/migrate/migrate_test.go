package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/taskkeeper/migrations"
)

func TestEmbeddedMigrations_HaveUpAndDown(t *testing.T) {
	t.Parallel()

	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		b, err := fs.ReadFile(migrations.FS, f)
		require.NoError(t, err)
		body := string(b)
		require.Contains(t, body, "-- +goose Up", f)
		require.Contains(t, body, "-- +goose Down", f)
	}

	schema, err := fs.ReadFile(migrations.FS, "00001_init.sql")
	require.NoError(t, err)
	for _, table := range []string{"users", "tasks", "auth_limiter"} {
		require.True(t, strings.Contains(string(schema), "CREATE TABLE "+table), table)
	}
}
