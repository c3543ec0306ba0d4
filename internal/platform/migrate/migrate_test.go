package migrate

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockroom/stockroom/migrations"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, name := range files {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		text := string(body)
		assert.Contains(t, text, "-- +goose Up", name)
		assert.Contains(t, text, "-- +goose Down", name)
	}
}

func TestUsersMigrationConstraints(t *testing.T) {
	body, err := fs.ReadFile(migrations.FS, "00001_users.sql")
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "UNIQUE (username)"))
	assert.True(t, strings.Contains(text, "CHECK (role IN ('employee', 'manager', 'admin'))"))
}
