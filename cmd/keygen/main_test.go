package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapp/cmd/security/keys"
)

func TestRun_WritesLoadablePair(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(2048, dir, "kid-1", false))

	pair, err := keys.Load(keys.Config{
		KeyID:          "kid-1",
		PrivateKeyFile: filepath.Join(dir, "private.pem"),
		PublicKeyFile:  filepath.Join(dir, "public.pem"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2048, pair.Public.N.BitLen())

	info, err := os.Stat(filepath.Join(dir, "private.pem"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRun_RefusesOverwriteAndWeakKeys(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(2048, dir, "kid-1", false))

	err := run(2048, dir, "kid-1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exists")

	require.NoError(t, run(2048, dir, "kid-2", true))

	err = run(1024, t.TempDir(), "kid-3", false)
	assert.ErrorIs(t, err, keys.ErrKeyTooWeak)
}
