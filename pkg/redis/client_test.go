package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigOptions(t *testing.T) {
	t.Run("plain url with password", func(t *testing.T) {
		opts, err := Config{URL: "redis://:secret@cache.local:6380"}.Options()
		require.NoError(t, err)
		assert.Equal(t, "cache.local:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Nil(t, opts.TLSConfig)
	})

	t.Run("tls with default port and explicit password", func(t *testing.T) {
		opts, err := Config{URL: "rediss://cache.local", Password: "override"}.Options()
		require.NoError(t, err)
		assert.Equal(t, "cache.local:6379", opts.Addr)
		assert.Equal(t, "override", opts.Password)
		assert.NotNil(t, opts.TLSConfig)
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := Config{}.Options()
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("bad scheme", func(t *testing.T) {
		_, err := Config{URL: "http://cache.local"}.Options()
		assert.Error(t, err)
	})
}

func TestHealthCheckNilClient(t *testing.T) {
	assert.ErrorIs(t, HealthCheck(context.Background(), nil), ErrNotConfigured)
}
