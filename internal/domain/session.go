package domain

// SessionState is an immutable snapshot of the observable session state
// published to subscribers. IsSignedIn is always derived from User, so no
// reader can observe the two out of step.
type SessionState struct {
	User                *User   `json:"user,omitempty"`
	IsSignedIn          bool    `json:"is_signed_in"`
	OnboardingCompleted bool    `json:"onboarding_completed"`
	UserData            DataMap `json:"user_data"`
}

// NeedsOnboarding reports whether the onboarding flow should still be shown.
func (s SessionState) NeedsOnboarding() bool {
	return !s.OnboardingCompleted
}

// IsFullySetUp reports whether the user is both signed in and onboarded.
func (s SessionState) IsFullySetUp() bool {
	return s.IsSignedIn && s.OnboardingCompleted
}

// DisplayName returns the current user's display name, or the fallback
// literal when signed out.
func (s SessionState) DisplayName() string {
	return s.User.DisplayName()
}

// Initials returns the current user's initials derived from the display name.
func (s SessionState) Initials() string {
	return s.User.Initials()
}
