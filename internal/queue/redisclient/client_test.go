package redisclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_DisabledWithoutAddr(t *testing.T) {
	c, err := Connect(context.Background(), Config{Addr: "  "})
	require.ErrorIs(t, err, ErrDisabled)
	assert.Nil(t, c)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.ErrorIs(t, c.Ping(context.Background()), ErrDisabled)
	assert.NoError(t, c.Close())
}

func TestConnect_UnreachableFails(t *testing.T) {
	_, err := Connect(context.Background(), Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDisabled)
}
