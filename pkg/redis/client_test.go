package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := NewClientFromRDB(rdb, "staging", zap.NewNop())
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestClient_SetGet(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeySessionToken()
	require.NoError(t, client.Set(ctx, key, "tok-abc", 0))

	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", val)
}

func TestClient_Get_MissingKey(t *testing.T) {
	_, client := setupTestRedis(t)

	_, err := client.Get(context.Background(), client.KeyBuilder.KeyUser())
	assert.Equal(t, goredis.Nil, err)
}

func TestClient_Set_WithTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.BuildKey("ephemeral")
	require.NoError(t, client.Set(ctx, key, "v", time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err := client.Get(ctx, key)
	assert.Equal(t, goredis.Nil, err)
}

func TestClient_Delete(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyBadgeCount()
	require.NoError(t, client.Set(ctx, key, "3", 0))
	require.NoError(t, client.Delete(ctx, key))

	_, err := client.Get(ctx, key)
	assert.Equal(t, goredis.Nil, err)

	// Deleting an absent key is not an error
	assert.NoError(t, client.Delete(ctx, key))
}

func TestClient_Exists(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	key := client.KeyBuilder.KeyOnboarding()
	n, err := client.Exists(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, client.Set(ctx, key, "true", 0))
	n, err = client.Exists(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestClient_Health(t *testing.T) {
	mr, client := setupTestRedis(t)

	assert.NoError(t, client.Health(context.Background()))

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("invalid://url", "staging", zap.NewNop())
	assert.Error(t, err)
}

func TestPrefixForLog(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"prod:session:user", "prod:session"},
		{"session:user", "session:user"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := prefixForLog(tt.key); got != tt.expected {
			t.Errorf("prefixForLog(%s) = %s, want %s", tt.key, got, tt.expected)
		}
	}
}
