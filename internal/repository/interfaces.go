package repository

import (
	"appcore/internal/domain"
	"context"
	"time"
)

// StateRepository is the pluggable persistence backend for the session core.
// Implementations may be an in-process map, redis, or postgres; all
// operations are idempotent for identical input and safe to retry. Absent
// records are not errors: LoadUser returns (nil, nil), LoadOnboardingStatus
// defaults to false, LoadUserData to an empty map and LoadSessionToken to "".
type StateRepository interface {
	// SaveUser persists the user record, replacing any existing one
	SaveUser(ctx context.Context, user *domain.User) error

	// LoadUser retrieves the persisted user record, or (nil, nil) when absent
	LoadUser(ctx context.Context) (*domain.User, error)

	// DeleteUser removes the persisted user record
	DeleteUser(ctx context.Context) error

	// SaveOnboardingStatus persists the onboarding completion flag
	SaveOnboardingStatus(ctx context.Context, completed bool) error

	// LoadOnboardingStatus retrieves the onboarding flag, defaulting to false
	LoadOnboardingStatus(ctx context.Context) (bool, error)

	// SaveUserData persists the whole user data mapping (overwrite, not patch)
	SaveUserData(ctx context.Context, data domain.DataMap) error

	// LoadUserData retrieves the user data mapping, defaulting to empty
	LoadUserData(ctx context.Context) (domain.DataMap, error)

	// SaveSessionToken persists the local-only bearer token
	SaveSessionToken(ctx context.Context, token string) error

	// LoadSessionToken retrieves the bearer token, defaulting to ""
	LoadSessionToken(ctx context.Context) (string, error)

	// DeleteSessionToken removes the bearer token
	DeleteSessionToken(ctx context.Context) error
}

// CampaignRepository persists the notification scheduler's durable state:
// the campaign start marker that keeps process restarts from re-triggering
// a campaign, and the locally tracked badge counter.
type CampaignRepository interface {
	// SaveCampaignStart records the instant the campaign was started
	SaveCampaignStart(ctx context.Context, startedAt time.Time) error

	// LoadCampaignStart retrieves the campaign start instant, zero when unset
	LoadCampaignStart(ctx context.Context) (time.Time, error)

	// ClearCampaignStart removes the campaign start marker
	ClearCampaignStart(ctx context.Context) error

	// SaveBadgeCount persists the local badge counter
	SaveBadgeCount(ctx context.Context, count int) error

	// LoadBadgeCount retrieves the badge counter, defaulting to 0
	LoadBadgeCount(ctx context.Context) (int, error)
}

// AttributeRepository persists the paywall service's durable attribute
// mirror, which must survive process restarts.
type AttributeRepository interface {
	// SaveAttributes persists the merged attribute mapping
	SaveAttributes(ctx context.Context, attrs domain.DataMap) error

	// LoadAttributes retrieves the attribute mapping, defaulting to empty
	LoadAttributes(ctx context.Context) (domain.DataMap, error)

	// DeleteAttributes removes the attribute mapping
	DeleteAttributes(ctx context.Context) error
}

// Repository aggregates the full persistence surface. Every concrete
// adapter implements all three roles over the same backend.
type Repository interface {
	StateRepository
	CampaignRepository
	AttributeRepository
}
