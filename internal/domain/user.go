package domain

import (
	"strings"
	"time"
)

// DefaultDisplayName is returned when a user has neither a name nor an email.
const DefaultDisplayName = "User"

// User represents the identity record owned by the session core.
// ID is immutable once created; CreatedAt is set at first sign-in and never
// changes, LastLoginAt is refreshed on every sign-in. Preferences and
// CustomData are carried opaquely and never interpreted by the core.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
	Preferences DataMap   `json:"preferences,omitempty"`
	CustomData  DataMap   `json:"custom_data,omitempty"`
}

// Equal reports whether two users carry the same identity and profile.
// Scalar fields compare directly, the open-ended mappings compare
// structurally (order-independent keys, deep values).
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.ID == other.ID &&
		u.Email == other.Email &&
		u.Name == other.Name &&
		u.AvatarURL == other.AvatarURL &&
		u.CreatedAt.Equal(other.CreatedAt) &&
		u.LastLoginAt.Equal(other.LastLoginAt) &&
		u.Preferences.Equal(other.Preferences) &&
		u.CustomData.Equal(other.CustomData)
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	copied := *u
	copied.Preferences = u.Preferences.Clone()
	copied.CustomData = u.CustomData.Clone()
	return &copied
}

// WithProfile returns a copy of the user with only the supplied fields
// replaced. Nil arguments keep the prior value; ID and CreatedAt never
// change.
func (u *User) WithProfile(name, email, avatarURL *string) *User {
	updated := u.Clone()
	if name != nil {
		updated.Name = *name
	}
	if email != nil {
		updated.Email = *email
	}
	if avatarURL != nil {
		updated.AvatarURL = *avatarURL
	}
	return updated
}

// DisplayName returns the name, falling back to the email, falling back to
// a fixed literal.
func (u *User) DisplayName() string {
	if u == nil {
		return DefaultDisplayName
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return DefaultDisplayName
}

// Initials derives up to two initials from the display name: the first
// letters of the first two space-separated tokens, or the first two
// characters if there is only one token.
func (u *User) Initials() string {
	name := u.DisplayName()
	tokens := strings.Fields(name)
	if len(tokens) >= 2 {
		return string([]rune(tokens[0])[:1]) + string([]rune(tokens[1])[:1])
	}
	runes := []rune(name)
	if len(runes) >= 2 {
		return string(runes[:2])
	}
	return string(runes)
}

// AccountAgeDays returns the whole number of days between CreatedAt and now.
func (u *User) AccountAgeDays(now time.Time) int {
	if u == nil || u.CreatedAt.IsZero() {
		return 0
	}
	age := now.Sub(u.CreatedAt)
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}
