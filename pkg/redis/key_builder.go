package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Session state key builders
func (kb *KeyBuilder) KeyUser() string {
	return kb.BuildKey(KeyUser)
}

func (kb *KeyBuilder) KeyOnboarding() string {
	return kb.BuildKey(KeyOnboarding)
}

func (kb *KeyBuilder) KeyUserData() string {
	return kb.BuildKey(KeyUserData)
}

func (kb *KeyBuilder) KeySessionToken() string {
	return kb.BuildKey(KeySessionToken)
}

// Notification scheduler key builders
func (kb *KeyBuilder) KeyCampaignStart() string {
	return kb.BuildKey(KeyCampaignStart)
}

func (kb *KeyBuilder) KeyBadgeCount() string {
	return kb.BuildKey(KeyBadgeCount)
}

// Paywall key builders
func (kb *KeyBuilder) KeyPaywallAttrs() string {
	return kb.BuildKey(KeyPaywallAttrs)
}
