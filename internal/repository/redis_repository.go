package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"appcore/internal/domain"
	"appcore/pkg/errors"
	"appcore/pkg/redis"
)

// RedisRepository persists session state in Redis. Records are stored as
// JSON strings under environment-prefixed keys with no expiry, since the
// session layout is durable rather than a cache.
type RedisRepository struct {
	client *redis.Client
}

// NewRedisRepository creates a Redis-backed repository
func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

var _ Repository = (*RedisRepository)(nil)

func (r *RedisRepository) setJSON(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.NewStorageError("failed to serialize record", err)
	}
	if err := r.client.Set(ctx, key, raw, 0); err != nil {
		return errors.NewStorageError("failed to write record", err)
	}
	return nil
}

// getJSON loads key into out, reporting whether the record existed.
func (r *RedisRepository) getJSON(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, key)
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorageError("failed to read record", err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, errors.NewStorageError("failed to deserialize record", err)
	}
	return true, nil
}

func (r *RedisRepository) delete(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, key); err != nil {
		return errors.NewStorageError("failed to delete record", err)
	}
	return nil
}

// SaveUser persists the user record, replacing any existing one
func (r *RedisRepository) SaveUser(ctx context.Context, user *domain.User) error {
	return r.setJSON(ctx, r.client.KeyBuilder.KeyUser(), user)
}

// LoadUser retrieves the persisted user record, or (nil, nil) when absent
func (r *RedisRepository) LoadUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	found, err := r.getJSON(ctx, r.client.KeyBuilder.KeyUser(), &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the persisted user record
func (r *RedisRepository) DeleteUser(ctx context.Context) error {
	return r.delete(ctx, r.client.KeyBuilder.KeyUser())
}

// SaveOnboardingStatus persists the onboarding completion flag
func (r *RedisRepository) SaveOnboardingStatus(ctx context.Context, completed bool) error {
	if err := r.client.Set(ctx, r.client.KeyBuilder.KeyOnboarding(), strconv.FormatBool(completed), 0); err != nil {
		return errors.NewStorageError("failed to write onboarding flag", err)
	}
	return nil
}

// LoadOnboardingStatus retrieves the onboarding flag, defaulting to false
func (r *RedisRepository) LoadOnboardingStatus(ctx context.Context) (bool, error) {
	raw, err := r.client.Get(ctx, r.client.KeyBuilder.KeyOnboarding())
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorageError("failed to read onboarding flag", err)
	}
	return raw == "true", nil
}

// SaveUserData persists the whole user data mapping
func (r *RedisRepository) SaveUserData(ctx context.Context, data domain.DataMap) error {
	return r.setJSON(ctx, r.client.KeyBuilder.KeyUserData(), data.Normalize())
}

// LoadUserData retrieves the user data mapping, defaulting to empty
func (r *RedisRepository) LoadUserData(ctx context.Context) (domain.DataMap, error) {
	var data domain.DataMap
	found, err := r.getJSON(ctx, r.client.KeyBuilder.KeyUserData(), &data)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.DataMap{}, nil
	}
	return data, nil
}

// SaveSessionToken persists the local-only bearer token
func (r *RedisRepository) SaveSessionToken(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.client.KeyBuilder.KeySessionToken(), token, 0); err != nil {
		return errors.NewStorageError("failed to write session token", err)
	}
	return nil
}

// LoadSessionToken retrieves the bearer token, defaulting to ""
func (r *RedisRepository) LoadSessionToken(ctx context.Context) (string, error) {
	raw, err := r.client.Get(ctx, r.client.KeyBuilder.KeySessionToken())
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.NewStorageError("failed to read session token", err)
	}
	return raw, nil
}

// DeleteSessionToken removes the bearer token
func (r *RedisRepository) DeleteSessionToken(ctx context.Context) error {
	return r.delete(ctx, r.client.KeyBuilder.KeySessionToken())
}

// SaveCampaignStart records the instant the campaign was started
func (r *RedisRepository) SaveCampaignStart(ctx context.Context, startedAt time.Time) error {
	if err := r.client.Set(ctx, r.client.KeyBuilder.KeyCampaignStart(), startedAt.UTC().Format(time.RFC3339Nano), 0); err != nil {
		return errors.NewStorageError("failed to write campaign marker", err)
	}
	return nil
}

// LoadCampaignStart retrieves the campaign start instant, zero when unset
func (r *RedisRepository) LoadCampaignStart(ctx context.Context) (time.Time, error) {
	raw, err := r.client.Get(ctx, r.client.KeyBuilder.KeyCampaignStart())
	if err == goredis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errors.NewStorageError("failed to read campaign marker", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.NewStorageError("corrupt campaign marker", err)
	}
	return t, nil
}

// ClearCampaignStart removes the campaign start marker
func (r *RedisRepository) ClearCampaignStart(ctx context.Context) error {
	return r.delete(ctx, r.client.KeyBuilder.KeyCampaignStart())
}

// SaveBadgeCount persists the local badge counter
func (r *RedisRepository) SaveBadgeCount(ctx context.Context, count int) error {
	if err := r.client.Set(ctx, r.client.KeyBuilder.KeyBadgeCount(), strconv.Itoa(count), 0); err != nil {
		return errors.NewStorageError("failed to write badge count", err)
	}
	return nil
}

// LoadBadgeCount retrieves the badge counter, defaulting to 0
func (r *RedisRepository) LoadBadgeCount(ctx context.Context) (int, error) {
	raw, err := r.client.Get(ctx, r.client.KeyBuilder.KeyBadgeCount())
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewStorageError("failed to read badge count", err)
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewStorageError("corrupt badge count", err)
	}
	return count, nil
}

// SaveAttributes persists the merged attribute mapping
func (r *RedisRepository) SaveAttributes(ctx context.Context, attrs domain.DataMap) error {
	return r.setJSON(ctx, r.client.KeyBuilder.KeyPaywallAttrs(), attrs.Normalize())
}

// LoadAttributes retrieves the attribute mapping, defaulting to empty
func (r *RedisRepository) LoadAttributes(ctx context.Context) (domain.DataMap, error) {
	var attrs domain.DataMap
	found, err := r.getJSON(ctx, r.client.KeyBuilder.KeyPaywallAttrs(), &attrs)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.DataMap{}, nil
	}
	return attrs, nil
}

// DeleteAttributes removes the attribute mapping
func (r *RedisRepository) DeleteAttributes(ctx context.Context) error {
	return r.delete(ctx, r.client.KeyBuilder.KeyPaywallAttrs())
}
