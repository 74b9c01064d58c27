package redis

import (
	"testing"
)

func TestKeyBuilder_Environment_Prefixes(t *testing.T) {
	tests := []struct {
		name           string
		environment    string
		expectedPrefix string
	}{
		{
			name:           "Production environment should use prod prefix",
			environment:    "production",
			expectedPrefix: "prod",
		},
		{
			name:           "Development environment should use staging prefix",
			environment:    "development",
			expectedPrefix: "staging",
		},
		{
			name:           "Staging environment should use staging prefix",
			environment:    "staging",
			expectedPrefix: "staging",
		},
		{
			name:           "Unknown environment should default to prod prefix",
			environment:    "unknown",
			expectedPrefix: "prod",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.environment)
			if kb.GetPrefix() != tt.expectedPrefix {
				t.Errorf("NewKeyBuilder(%s).GetPrefix() = %s, want %s",
					tt.environment, kb.GetPrefix(), tt.expectedPrefix)
			}
		})
	}
}

func TestKeyBuilder_KeyGeneration(t *testing.T) {
	kb := NewKeyBuilder("production")

	tests := []struct {
		name     string
		method   func() string
		expected string
	}{
		{
			name:     "User key",
			method:   kb.KeyUser,
			expected: "prod:session:user",
		},
		{
			name:     "Onboarding key",
			method:   kb.KeyOnboarding,
			expected: "prod:session:onboarding_completed",
		},
		{
			name:     "UserData key",
			method:   kb.KeyUserData,
			expected: "prod:session:user_data",
		},
		{
			name:     "SessionToken key",
			method:   kb.KeySessionToken,
			expected: "prod:session:token",
		},
		{
			name:     "CampaignStart key",
			method:   kb.KeyCampaignStart,
			expected: "prod:notify:campaign_started_at",
		},
		{
			name:     "BadgeCount key",
			method:   kb.KeyBadgeCount,
			expected: "prod:notify:badge_count",
		},
		{
			name:     "PaywallAttrs key",
			method:   kb.KeyPaywallAttrs,
			expected: "prod:paywall:attributes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.method(); got != tt.expected {
				t.Errorf("key = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestKeyBuilder_EnvironmentIsolation(t *testing.T) {
	prod := NewKeyBuilder("production")
	staging := NewKeyBuilder("staging")

	if prod.KeyUser() == staging.KeyUser() {
		t.Error("production and staging keys must not collide")
	}
}
