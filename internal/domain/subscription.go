package domain

// SubscriptionStatus is the closed set of paywall subscription states.
// Transitions are explicit: purchase, restore, cancellation and expiration
// events drive them, the paywall service never infers a status on its own.
type SubscriptionStatus string

const (
	SubscriptionFree      SubscriptionStatus = "free"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionPremium   SubscriptionStatus = "premium"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is a member of the closed enumeration.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionFree, SubscriptionTrial, SubscriptionPremium,
		SubscriptionExpired, SubscriptionCancelled:
		return true
	}
	return false
}

// IsActive reports whether the status currently grants paid entitlements.
func (s SubscriptionStatus) IsActive() bool {
	return s == SubscriptionTrial || s == SubscriptionPremium
}
