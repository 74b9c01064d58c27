package service

import (
	"context"
	"time"

	"appcore/internal/domain"
)

// PermissionStatus is the notification permission state machine:
// undetermined is the only state that transitions, to authorized, denied or
// provisional.
type PermissionStatus string

const (
	PermissionUndetermined PermissionStatus = "undetermined"
	PermissionAuthorized   PermissionStatus = "authorized"
	PermissionDenied       PermissionStatus = "denied"
	PermissionProvisional  PermissionStatus = "provisional"
)

// Granted reports whether the status permits delivering notifications.
func (p PermissionStatus) Granted() bool {
	return p == PermissionAuthorized || p == PermissionProvisional
}

// SessionService is the user-state manager, the single owner of observable
// session state. Exactly one instance exists per process; UI-facing
// collaborators never bypass it to read storage directly.
type SessionService interface {
	// SignIn creates and persists a user record, then atomically updates
	// observable state. Fails with invalid_input for an empty id; a storage
	// failure leaves observable state unchanged.
	SignIn(ctx context.Context, userID string, opts SignInOptions) (*domain.User, error)

	// SignOut deletes the persisted user, clears the session token and
	// resets observable state. Collaborator cleanup failures are logged,
	// never returned; local state is always cleared.
	SignOut(ctx context.Context) error

	// CheckAuthenticationStatus reloads the user record from storage,
	// refreshes observable state and reports whether a user is present.
	CheckAuthenticationStatus(ctx context.Context) (bool, error)

	// CompleteOnboarding persists the onboarding flag and, when signed in,
	// starts the re-engagement campaign. Idempotent.
	CompleteOnboarding(ctx context.Context) error

	// ResetOnboarding clears the onboarding flag without touching sign-in state.
	ResetOnboarding(ctx context.Context) error

	// UpdateUserData merges the given entries into the user data mapping
	// (overwrite by key, preserve the rest) and persists the merged result.
	UpdateUserData(ctx context.Context, partial domain.DataMap) error

	// UpdateProfile replaces only the supplied profile fields on the current
	// user. Fails with not_signed_in when no user is present.
	UpdateProfile(ctx context.Context, name, email, avatarURL *string) (*domain.User, error)

	// SetSessionToken stores the opaque bearer token and applies it to the
	// HTTP client immediately.
	SetSessionToken(ctx context.Context, token string) error

	// GetSessionToken returns the current bearer token, or ""
	GetSessionToken() string

	// ClearSessionToken removes the bearer token from storage and the HTTP client.
	ClearSessionToken(ctx context.Context) error

	// SyncUserData reloads user, onboarding flag and data mapping from
	// storage, overwriting observable state. Fails with not_signed_in when
	// not authenticated.
	SyncUserData(ctx context.Context) error

	// ResetAllUserData wipes every persisted record, resets observable state
	// and cascades cleanup to all collaborators.
	ResetAllUserData(ctx context.Context) error

	// Snapshot returns the current observable state.
	Snapshot() domain.SessionState

	// Subscribe registers a state observer. Each state change is delivered
	// as a snapshot; slow observers drop intermediate states.
	Subscribe() <-chan domain.SessionState

	// Unsubscribe removes and closes a channel returned by Subscribe.
	Unsubscribe(ch <-chan domain.SessionState)
}

// SignInOptions carries the optional profile fields of a sign-in.
type SignInOptions struct {
	Email     string
	Name      string
	AvatarURL string
}

// NotificationService manages notification permission, one-off and delayed
// local notifications, the fixed re-engagement campaign and badge
// bookkeeping.
type NotificationService interface {
	// RequestPermission resolves the permission state. Idempotent: once the
	// state is determined, repeated calls return it unchanged.
	RequestPermission(ctx context.Context) (PermissionStatus, error)

	// Permission returns the current permission state without prompting.
	Permission() PermissionStatus

	// SendNow delivers a notification immediately. A no-op when permission
	// is not granted.
	SendNow(ctx context.Context, title, body string) error

	// Schedule delivers a notification after delay. Fails with
	// invalid_delay when delay <= 0 and not_allowed without permission.
	Schedule(ctx context.Context, n domain.Notification, delay time.Duration) error

	// StartCampaign records the campaign start instant and schedules every
	// entry relative to it. Returns already_running when a start marker
	// exists.
	StartCampaign(ctx context.Context) error

	// StopCampaign cancels pending campaign entries and clears the start
	// marker. Delivered entries are unaffected.
	StopCampaign(ctx context.Context) error

	// Resume reschedules undelivered campaign entries after a process
	// restart without moving the recorded start instant.
	Resume(ctx context.Context) error

	// SetEnabled toggles campaigns globally; disabling stops an active one.
	SetEnabled(ctx context.Context, enabled bool) error

	// SetBadge updates the platform badge and the persisted counter together.
	SetBadge(ctx context.Context, count int) error

	// BadgeCount returns the persisted badge counter.
	BadgeCount(ctx context.Context) (int, error)
}

// PaywallService wraps the remote paywall SDK: one-time configuration,
// placement-triggered evaluation, durable user attributes and explicit
// subscription transitions.
type PaywallService interface {
	// Configure performs one-time setup. Subsequent calls only update the
	// debug flag.
	Configure(ctx context.Context, apiKey string, debug bool) error

	// RegisterPlacement asks the remote decision system to evaluate a named
	// placement. The remote outcome is asynchronous and opaque.
	RegisterPlacement(ctx context.Context, name string, params domain.DataMap) error

	// SetUserAttributes merges attributes by key into the durable local
	// mirror and pushes the merged set to the remote SDK.
	SetUserAttributes(ctx context.Context, attrs domain.DataMap) error

	// Attributes returns the current attribute mirror.
	Attributes() domain.DataMap

	// SubscriptionStatus returns the tracked subscription state.
	SubscriptionStatus() domain.SubscriptionStatus

	// HandlePurchaseCompleted records a completed purchase (trial or premium).
	HandlePurchaseCompleted(ctx context.Context, productID string, isTrial bool) error

	// HandleRestoreCompleted records a successful purchase restoration.
	HandleRestoreCompleted(ctx context.Context) error

	// HandleCancellation records a subscription cancellation.
	HandleCancellation(ctx context.Context) error

	// HandleExpiration records a subscription expiry.
	HandleExpiration(ctx context.Context) error

	// ResetUserData clears the local attribute mirror and instructs the
	// remote SDK to forget the user.
	ResetUserData(ctx context.Context) error
}

// Services aggregates all service interfaces
type Services struct {
	Session       SessionService
	Notifications NotificationService
	Paywall       PaywallService
}
