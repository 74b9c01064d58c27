package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appcore/internal/domain"
	apperrors "appcore/pkg/errors"
)

// Record keys within the app_state table. One row per logical record keeps
// every record independently readable and writable.
const (
	recordUser          = "user"
	recordOnboarding    = "onboarding_completed"
	recordUserData      = "user_data"
	recordSessionToken  = "session_token"
	recordCampaignStart = "campaign_started_at"
	recordBadgeCount    = "badge_count"
	recordPaywallAttrs  = "paywall_attributes"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS app_state (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresRepository persists session state as JSONB documents in a single
// key/value table, one row per logical record.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to the database and ensures the schema
// exists.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.NewStorageError("unable to parse database URL", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewStorageError("unable to create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewStorageError("unable to ping database", err)
	}

	repo := &PostgresRepository{pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

var _ Repository = (*PostgresRepository)(nil)

// Migrate creates the app_state table if it does not exist. Also invoked by
// cmd/migrate.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return apperrors.NewStorageError("failed to create schema", err)
	}
	return nil
}

// Drop removes the app_state table. Used by cmd/migrate only.
func (r *PostgresRepository) Drop(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DROP TABLE IF EXISTS app_state`); err != nil {
		return apperrors.NewStorageError("failed to drop schema", err)
	}
	return nil
}

// Close releases the connection pool
func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// Health checks connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) setRecord(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewStorageError("failed to serialize record", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO app_state (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, raw)
	if err != nil {
		return apperrors.NewStorageError("failed to write record", err)
	}
	return nil
}

// getRecord loads key into out, reporting whether the record existed.
func (r *PostgresRepository) getRecord(ctx context.Context, key string, out interface{}) (bool, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT value FROM app_state WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("failed to read record", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, apperrors.NewStorageError("failed to deserialize record", err)
	}
	return true, nil
}

func (r *PostgresRepository) deleteRecord(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM app_state WHERE key = $1`, key); err != nil {
		return apperrors.NewStorageError("failed to delete record", err)
	}
	return nil
}

// SaveUser persists the user record, replacing any existing one
func (r *PostgresRepository) SaveUser(ctx context.Context, user *domain.User) error {
	return r.setRecord(ctx, recordUser, user)
}

// LoadUser retrieves the persisted user record, or (nil, nil) when absent
func (r *PostgresRepository) LoadUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	found, err := r.getRecord(ctx, recordUser, &user)
	if err != nil || !found {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes the persisted user record
func (r *PostgresRepository) DeleteUser(ctx context.Context) error {
	return r.deleteRecord(ctx, recordUser)
}

// SaveOnboardingStatus persists the onboarding completion flag
func (r *PostgresRepository) SaveOnboardingStatus(ctx context.Context, completed bool) error {
	return r.setRecord(ctx, recordOnboarding, completed)
}

// LoadOnboardingStatus retrieves the onboarding flag, defaulting to false
func (r *PostgresRepository) LoadOnboardingStatus(ctx context.Context) (bool, error) {
	var completed bool
	if _, err := r.getRecord(ctx, recordOnboarding, &completed); err != nil {
		return false, err
	}
	return completed, nil
}

// SaveUserData persists the whole user data mapping
func (r *PostgresRepository) SaveUserData(ctx context.Context, data domain.DataMap) error {
	return r.setRecord(ctx, recordUserData, data.Normalize())
}

// LoadUserData retrieves the user data mapping, defaulting to empty
func (r *PostgresRepository) LoadUserData(ctx context.Context) (domain.DataMap, error) {
	var data domain.DataMap
	found, err := r.getRecord(ctx, recordUserData, &data)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.DataMap{}, nil
	}
	return data, nil
}

// SaveSessionToken persists the local-only bearer token
func (r *PostgresRepository) SaveSessionToken(ctx context.Context, token string) error {
	return r.setRecord(ctx, recordSessionToken, token)
}

// LoadSessionToken retrieves the bearer token, defaulting to ""
func (r *PostgresRepository) LoadSessionToken(ctx context.Context) (string, error) {
	var token string
	if _, err := r.getRecord(ctx, recordSessionToken, &token); err != nil {
		return "", err
	}
	return token, nil
}

// DeleteSessionToken removes the bearer token
func (r *PostgresRepository) DeleteSessionToken(ctx context.Context) error {
	return r.deleteRecord(ctx, recordSessionToken)
}

// SaveCampaignStart records the instant the campaign was started
func (r *PostgresRepository) SaveCampaignStart(ctx context.Context, startedAt time.Time) error {
	return r.setRecord(ctx, recordCampaignStart, startedAt.UTC())
}

// LoadCampaignStart retrieves the campaign start instant, zero when unset
func (r *PostgresRepository) LoadCampaignStart(ctx context.Context) (time.Time, error) {
	var startedAt time.Time
	if _, err := r.getRecord(ctx, recordCampaignStart, &startedAt); err != nil {
		return time.Time{}, err
	}
	return startedAt, nil
}

// ClearCampaignStart removes the campaign start marker
func (r *PostgresRepository) ClearCampaignStart(ctx context.Context) error {
	return r.deleteRecord(ctx, recordCampaignStart)
}

// SaveBadgeCount persists the local badge counter
func (r *PostgresRepository) SaveBadgeCount(ctx context.Context, count int) error {
	return r.setRecord(ctx, recordBadgeCount, count)
}

// LoadBadgeCount retrieves the badge counter, defaulting to 0
func (r *PostgresRepository) LoadBadgeCount(ctx context.Context) (int, error) {
	var count int
	if _, err := r.getRecord(ctx, recordBadgeCount, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// SaveAttributes persists the merged attribute mapping
func (r *PostgresRepository) SaveAttributes(ctx context.Context, attrs domain.DataMap) error {
	return r.setRecord(ctx, recordPaywallAttrs, attrs.Normalize())
}

// LoadAttributes retrieves the attribute mapping, defaulting to empty
func (r *PostgresRepository) LoadAttributes(ctx context.Context) (domain.DataMap, error) {
	var attrs domain.DataMap
	found, err := r.getRecord(ctx, recordPaywallAttrs, &attrs)
	if err != nil {
		return nil, err
	}
	if !found {
		return domain.DataMap{}, nil
	}
	return attrs, nil
}

// DeleteAttributes removes the attribute mapping
func (r *PostgresRepository) DeleteAttributes(ctx context.Context) error {
	return r.deleteRecord(ctx, recordPaywallAttrs)
}
