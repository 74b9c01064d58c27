package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"appcore/internal/domain"
	"appcore/pkg/redis"
)

func setupRedisRepo(t *testing.T) *RedisRepository {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := redis.NewClientFromRDB(rdb, "staging", zap.NewNop())
	t.Cleanup(func() { client.Close() })

	return NewRedisRepository(client)
}

func TestRedisRepository_UserRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	loaded, err := repo.LoadUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	user := &domain.User{
		ID:          "user-1",
		Name:        "Alice",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
		LastLoginAt: time.Now().UTC().Truncate(time.Second),
		CustomData:  domain.DataMap{"level": 3},
	}
	require.NoError(t, repo.SaveUser(ctx, user))

	loaded, err = repo.LoadUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, user.ID, loaded.ID)
	assert.Equal(t, user.Name, loaded.Name)
	assert.True(t, user.CreatedAt.Equal(loaded.CreatedAt))
	assert.True(t, user.CustomData.Equal(loaded.CustomData))

	require.NoError(t, repo.DeleteUser(ctx))
	loaded, err = repo.LoadUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisRepository_OnboardingFlag(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	completed, err := repo.LoadOnboardingStatus(ctx)
	require.NoError(t, err)
	assert.False(t, completed)

	require.NoError(t, repo.SaveOnboardingStatus(ctx, true))
	completed, err = repo.LoadOnboardingStatus(ctx)
	require.NoError(t, err)
	assert.True(t, completed)

	require.NoError(t, repo.SaveOnboardingStatus(ctx, false))
	completed, err = repo.LoadOnboardingStatus(ctx)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestRedisRepository_UserData_NormalizedRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	data, err := repo.LoadUserData(ctx)
	require.NoError(t, err)
	assert.Empty(t, data)

	saved := domain.DataMap{
		"count":  7,
		"nested": map[string]interface{}{"flag": true},
		"tags":   []interface{}{"a", "b"},
	}
	require.NoError(t, repo.SaveUserData(ctx, saved))

	loaded, err := repo.LoadUserData(ctx)
	require.NoError(t, err)
	assert.True(t, saved.Equal(loaded))
}

func TestRedisRepository_SessionToken(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	token, err := repo.LoadSessionToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, repo.SaveSessionToken(ctx, "tok-xyz"))
	token, err = repo.LoadSessionToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", token)

	require.NoError(t, repo.DeleteSessionToken(ctx))
	token, err = repo.LoadSessionToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRedisRepository_CampaignMarker(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	start, err := repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, start.IsZero())

	now := time.Now().UTC()
	require.NoError(t, repo.SaveCampaignStart(ctx, now))

	start, err = repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, start.Equal(now))

	require.NoError(t, repo.ClearCampaignStart(ctx))
	start, err = repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
}

func TestRedisRepository_BadgeCount(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	count, err := repo.LoadBadgeCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, repo.SaveBadgeCount(ctx, 5))
	count, err = repo.LoadBadgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRedisRepository_Attributes(t *testing.T) {
	ctx := context.Background()
	repo := setupRedisRepo(t)

	attrs, err := repo.LoadAttributes(ctx)
	require.NoError(t, err)
	assert.Empty(t, attrs)

	saved := domain.DataMap{"subscription_status": "trial", "onboarding_completed": true}
	require.NoError(t, repo.SaveAttributes(ctx, saved))

	attrs, err = repo.LoadAttributes(ctx)
	require.NoError(t, err)
	assert.True(t, saved.Equal(attrs))

	require.NoError(t, repo.DeleteAttributes(ctx))
	attrs, err = repo.LoadAttributes(ctx)
	require.NoError(t, err)
	assert.Empty(t, attrs)
}
