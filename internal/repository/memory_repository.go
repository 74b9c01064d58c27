package repository

import (
	"context"
	"sync"
	"time"

	"appcore/internal/domain"
)

// MemoryRepository is the in-process persistence backend. It is the default
// when no external store is configured and the backbone of the test suite.
// All records are deep-copied on the way in and out so callers can never
// mutate stored state through a shared map.
type MemoryRepository struct {
	mu sync.RWMutex

	user          *domain.User
	onboarding    bool
	userData      domain.DataMap
	sessionToken  string
	campaignStart time.Time
	badgeCount    int
	attributes    domain.DataMap
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

var _ Repository = (*MemoryRepository)(nil)

// SaveUser persists the user record, replacing any existing one
func (r *MemoryRepository) SaveUser(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = user.Clone()
	return nil
}

// LoadUser retrieves the persisted user record, or (nil, nil) when absent
func (r *MemoryRepository) LoadUser(ctx context.Context) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user.Clone(), nil
}

// DeleteUser removes the persisted user record
func (r *MemoryRepository) DeleteUser(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = nil
	return nil
}

// SaveOnboardingStatus persists the onboarding completion flag
func (r *MemoryRepository) SaveOnboardingStatus(ctx context.Context, completed bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onboarding = completed
	return nil
}

// LoadOnboardingStatus retrieves the onboarding flag, defaulting to false
func (r *MemoryRepository) LoadOnboardingStatus(ctx context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onboarding, nil
}

// SaveUserData persists the whole user data mapping
func (r *MemoryRepository) SaveUserData(ctx context.Context, data domain.DataMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userData = data.Clone()
	return nil
}

// LoadUserData retrieves the user data mapping, defaulting to empty
func (r *MemoryRepository) LoadUserData(ctx context.Context) (domain.DataMap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.userData.Clone(), nil
}

// SaveSessionToken persists the local-only bearer token
func (r *MemoryRepository) SaveSessionToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionToken = token
	return nil
}

// LoadSessionToken retrieves the bearer token, defaulting to ""
func (r *MemoryRepository) LoadSessionToken(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessionToken, nil
}

// DeleteSessionToken removes the bearer token
func (r *MemoryRepository) DeleteSessionToken(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionToken = ""
	return nil
}

// SaveCampaignStart records the instant the campaign was started
func (r *MemoryRepository) SaveCampaignStart(ctx context.Context, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaignStart = startedAt
	return nil
}

// LoadCampaignStart retrieves the campaign start instant, zero when unset
func (r *MemoryRepository) LoadCampaignStart(ctx context.Context) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.campaignStart, nil
}

// ClearCampaignStart removes the campaign start marker
func (r *MemoryRepository) ClearCampaignStart(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaignStart = time.Time{}
	return nil
}

// SaveBadgeCount persists the local badge counter
func (r *MemoryRepository) SaveBadgeCount(ctx context.Context, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badgeCount = count
	return nil
}

// LoadBadgeCount retrieves the badge counter, defaulting to 0
func (r *MemoryRepository) LoadBadgeCount(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.badgeCount, nil
}

// SaveAttributes persists the merged attribute mapping
func (r *MemoryRepository) SaveAttributes(ctx context.Context, attrs domain.DataMap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attributes = attrs.Clone()
	return nil
}

// LoadAttributes retrieves the attribute mapping, defaulting to empty
func (r *MemoryRepository) LoadAttributes(ctx context.Context) (domain.DataMap, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.attributes.Clone(), nil
}

// DeleteAttributes removes the attribute mapping
func (r *MemoryRepository) DeleteAttributes(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attributes = nil
	return nil
}
