package redisclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	t.Run("bare address", func(t *testing.T) {
		opts, err := Options("localhost:6379")
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", opts.Addr)
	})

	t.Run("url with db and password", func(t *testing.T) {
		opts, err := Options("redis://:secret@cache:6380/2")
		require.NoError(t, err)
		assert.Equal(t, "cache:6380", opts.Addr)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 2, opts.DB)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := Options("  ")
		assert.Error(t, err)
	})

	t.Run("malformed url", func(t *testing.T) {
		_, err := Options("redis://cache:6379/not-a-db")
		assert.Error(t, err)
	})
}
