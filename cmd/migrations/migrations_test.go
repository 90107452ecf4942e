package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedFiles(t *testing.T) {
	entries, err := fs.ReadDir(FS(), "sql")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries {
		b, err := fs.ReadFile(FS(), "sql/"+e.Name())
		require.NoError(t, err)
		body := string(b)
		assert.Contains(t, body, "-- +goose Up", e.Name())
		assert.Contains(t, body, "-- +goose Down", e.Name())
	}
}

func TestRefreshTokenConstraints(t *testing.T) {
	b, err := fs.ReadFile(FS(), "sql/00002_refresh_tokens.sql")
	require.NoError(t, err)
	body := string(b)

	assert.True(t, strings.Contains(body, "UNIQUE (account_id)"))
	assert.True(t, strings.Contains(body, "UNIQUE (value_hash)"))
	assert.True(t, strings.Contains(body, "ON DELETE CASCADE"))
}
