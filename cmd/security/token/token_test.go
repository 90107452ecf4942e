package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashRefreshTokenHex_SHA256WithoutKey(t *testing.T) {
	t.Setenv(HMACEnvKey, "")

	got := HashRefreshTokenHex("abc")
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
	require.False(t, HMACEnabled())
}

func TestHashRefreshTokenHex_HMACWithKey(t *testing.T) {
	t.Setenv(HMACEnvKey, "0123456789abcdef0123456789abcdef")

	got := HashRefreshTokenHex("abc")
	require.Len(t, got, 64)
	require.NotEqual(t, HashSHA256Hex("abc"), got)
	require.Equal(t, HashHMACSHA256Hex("abc", []byte("0123456789abcdef0123456789abcdef")), got)
	require.True(t, HMACEnabled())
}

func TestHMACKeyFromEnv(t *testing.T) {
	t.Setenv(HMACEnvKey, "")
	_, err := HMACKeyFromEnv(32)
	require.ErrorIs(t, err, ErrHMACKeyMissing)

	t.Setenv(HMACEnvKey, "short")
	_, err = HMACKeyFromEnv(32)
	require.ErrorIs(t, err, ErrHMACKeyTooShort)

	t.Setenv(HMACEnvKey, "  0123456789abcdef0123456789abcdef  ")
	key, err := HMACKeyFromEnv(32)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef0123456789abcdef", string(key))
}
