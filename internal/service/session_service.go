package service

import (
	"context"
	"sync"
	"time"

	"appcore/internal/domain"
	"appcore/internal/repository"
	"appcore/pkg/errors"
	"appcore/pkg/httpclient"
	"appcore/pkg/logger"
)

// fanOutTimeout bounds background collaborator calls spawned by state
// mutations.
const fanOutTimeout = 15 * time.Second

// sessionService is the user-state manager. It is the single owner of the
// observable session state and the only writer to the persistence backend.
//
// Locking: opMu serializes whole mutating operations end to end, so the
// read-merge-persist sequence of UpdateUserData is a critical section and
// sign-in/sign-out never interleave with data mutations. stateMu guards the
// observable fields alone, so readers always see a consistent pair of
// (user, isSignedIn). Collaborator fan-out never runs under either lock.
type sessionService struct {
	opMu sync.Mutex

	stateMu             sync.RWMutex
	user                *domain.User
	onboardingCompleted bool
	userData            domain.DataMap
	sessionToken        string

	repo          repository.StateRepository
	httpClient    *httpclient.Client
	notifications NotificationService
	paywall       PaywallService
	log           *logger.Logger
	clock         func() time.Time

	subMu       sync.Mutex
	subscribers map[<-chan domain.SessionState]chan domain.SessionState

	fanout sync.WaitGroup
}

// NewSessionService creates the manager and initializes observable state
// from the persistence backend. A storage failure during initialization is
// logged and the manager starts signed out; CheckAuthenticationStatus can
// reconcile later.
func NewSessionService(
	repo repository.StateRepository,
	httpClient *httpclient.Client,
	notifications NotificationService,
	paywall PaywallService,
	log *logger.Logger,
) SessionService {
	s := &sessionService{
		userData:      domain.DataMap{},
		repo:          repo,
		httpClient:    httpClient,
		notifications: notifications,
		paywall:       paywall,
		log:           log,
		clock:         time.Now,
		subscribers:   make(map[<-chan domain.SessionState]chan domain.SessionState),
	}
	s.restore()
	return s
}

// restore loads the persisted session into memory at construction time.
func (s *sessionService) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := s.repo.LoadUser(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to restore persisted user, starting signed out")
	}
	onboarding, err := s.repo.LoadOnboardingStatus(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to restore onboarding flag")
	}
	data, err := s.repo.LoadUserData(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to restore user data")
	}
	if data == nil {
		data = domain.DataMap{}
	}
	token, err := s.repo.LoadSessionToken(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Failed to restore session token")
	}

	s.stateMu.Lock()
	s.user = user
	s.onboardingCompleted = onboarding
	s.userData = data
	s.sessionToken = token
	s.stateMu.Unlock()

	if token != "" {
		s.httpClient.SetBearerToken(token)
	}
	s.log.WithFields(map[string]interface{}{
		"signed_in":  user != nil,
		"onboarding": onboarding,
	}).Info("Session state restored")
}

// SignIn constructs a new user record, persists it, then atomically updates
// observable state. CreatedAt is preserved when the same user id is already
// persisted; LastLoginAt always refreshes.
func (s *sessionService) SignIn(ctx context.Context, userID string, opts SignInOptions) (*domain.User, error) {
	if userID == "" {
		return nil, errors.NewInvalidInputError("user id must not be empty", nil)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	now := s.clock()
	user := &domain.User{
		ID:          userID,
		Email:       opts.Email,
		Name:        opts.Name,
		AvatarURL:   opts.AvatarURL,
		CreatedAt:   now,
		LastLoginAt: now,
		Preferences: domain.DataMap{},
		CustomData:  domain.DataMap{},
	}

	if existing, err := s.repo.LoadUser(ctx); err != nil {
		s.log.WithError(err).Warn("Could not check for an existing user record")
	} else if existing != nil && existing.ID == userID {
		user.CreatedAt = existing.CreatedAt
		user.Preferences = existing.Preferences.Clone()
		user.CustomData = existing.CustomData.Clone()
	}

	// A storage failure must leave observable state untouched.
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	s.stateMu.Lock()
	s.user = user
	token := s.sessionToken
	s.stateMu.Unlock()
	s.publish()

	s.log.WithField("user_id", userID).Info("User signed in")

	if token != "" {
		s.httpClient.SetBearerToken(token)
	}
	s.syncPaywallAttributes()

	return user.Clone(), nil
}

// SignOut deletes the persisted user, clears the session token and resets
// observable state. Cleanup failures are logged, never returned: a user can
// always sign out locally.
func (s *sessionService) SignOut(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.DeleteUser(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to delete persisted user during sign-out")
	}
	if err := s.repo.DeleteSessionToken(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to delete session token during sign-out")
	}

	s.stateMu.Lock()
	s.user = nil
	s.sessionToken = ""
	s.stateMu.Unlock()
	s.publish()

	s.httpClient.ClearBearerToken()
	s.fanOut("paywall reset", func(ctx context.Context) error {
		return s.paywall.ResetUserData(ctx)
	})
	s.fanOut("campaign stop", func(ctx context.Context) error {
		return s.notifications.StopCampaign(ctx)
	})

	s.log.Info("User signed out")
	return nil
}

// CheckAuthenticationStatus reloads the user record from storage and
// refreshes observable state; used at process start and on app resume.
func (s *sessionService) CheckAuthenticationStatus(ctx context.Context) (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	user, err := s.repo.LoadUser(ctx)
	if err != nil {
		return false, err
	}

	s.stateMu.Lock()
	s.user = user
	s.stateMu.Unlock()
	s.publish()

	return user != nil, nil
}

// CompleteOnboarding persists the onboarding flag and, for a signed-in
// user, starts the re-engagement campaign. Repeating the call is harmless:
// the scheduler reports the running campaign as a warning, not a failure.
func (s *sessionService) CompleteOnboarding(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.SaveOnboardingStatus(ctx, true); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.onboardingCompleted = true
	signedIn := s.user != nil
	s.stateMu.Unlock()
	s.publish()

	if signedIn {
		s.fanOut("campaign start", func(ctx context.Context) error {
			return s.notifications.StartCampaign(ctx)
		})
		s.syncPaywallAttributes()
	}
	s.log.Info("Onboarding completed")
	return nil
}

// ResetOnboarding clears the onboarding flag without touching sign-in state.
func (s *sessionService) ResetOnboarding(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.SaveOnboardingStatus(ctx, false); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.onboardingCompleted = false
	signedIn := s.user != nil
	s.stateMu.Unlock()
	s.publish()

	if signedIn {
		s.syncPaywallAttributes()
	}
	return nil
}

// UpdateUserData merges partial into the user data mapping and persists the
// merged result. The whole read-merge-persist sequence runs under opMu so
// concurrent merges cannot overwrite each other.
func (s *sessionService) UpdateUserData(ctx context.Context, partial domain.DataMap) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stateMu.RLock()
	merged := s.userData.Merge(partial)
	s.stateMu.RUnlock()

	if err := s.repo.SaveUserData(ctx, merged); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.userData = merged
	signedIn := s.user != nil
	s.stateMu.Unlock()
	s.publish()

	if signedIn {
		s.syncPaywallAttributes()
	}
	return nil
}

// UpdateProfile produces a new user value with only the supplied fields
// replaced, persists it and updates observable state.
func (s *sessionService) UpdateProfile(ctx context.Context, name, email, avatarURL *string) (*domain.User, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stateMu.RLock()
	current := s.user
	s.stateMu.RUnlock()

	if current == nil {
		return nil, errors.NewNotSignedInError("no user is signed in")
	}

	updated := current.WithProfile(name, email, avatarURL)
	if err := s.repo.SaveUser(ctx, updated); err != nil {
		return nil, err
	}

	s.stateMu.Lock()
	s.user = updated
	s.stateMu.Unlock()
	s.publish()

	s.syncPaywallAttributes()
	return updated.Clone(), nil
}

// SetSessionToken stores the opaque bearer token and applies it to the HTTP
// client immediately.
func (s *sessionService) SetSessionToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.NewInvalidInputError("session token must not be empty", nil)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.SaveSessionToken(ctx, token); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.sessionToken = token
	s.stateMu.Unlock()

	s.httpClient.SetBearerToken(token)
	return nil
}

// GetSessionToken returns the current bearer token, or "".
func (s *sessionService) GetSessionToken() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.sessionToken
}

// ClearSessionToken removes the bearer token from storage and the HTTP
// client.
func (s *sessionService) ClearSessionToken(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.DeleteSessionToken(ctx); err != nil {
		return err
	}

	s.stateMu.Lock()
	s.sessionToken = ""
	s.stateMu.Unlock()

	s.httpClient.ClearBearerToken()
	return nil
}

// SyncUserData reloads user, onboarding flag and data mapping from storage
// and overwrites observable state; used to reconcile after external changes.
func (s *sessionService) SyncUserData(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.stateMu.RLock()
	signedIn := s.user != nil
	s.stateMu.RUnlock()

	if !signedIn {
		return errors.NewNotSignedInError("cannot sync while signed out")
	}

	user, err := s.repo.LoadUser(ctx)
	if err != nil {
		return err
	}
	onboarding, err := s.repo.LoadOnboardingStatus(ctx)
	if err != nil {
		return err
	}
	data, err := s.repo.LoadUserData(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		data = domain.DataMap{}
	}

	s.stateMu.Lock()
	s.user = user
	s.onboardingCompleted = onboarding
	s.userData = data
	s.stateMu.Unlock()
	s.publish()

	s.syncPaywallAttributes()
	return nil
}

// ResetAllUserData wipes every persisted record, resets observable state and
// cascades cleanup to all collaborators. Storage failures are logged so the
// local reset always completes.
func (s *sessionService) ResetAllUserData(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.repo.DeleteUser(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to delete user during full reset")
	}
	if err := s.repo.SaveOnboardingStatus(ctx, false); err != nil {
		s.log.WithError(err).Warn("Failed to reset onboarding flag during full reset")
	}
	if err := s.repo.SaveUserData(ctx, domain.DataMap{}); err != nil {
		s.log.WithError(err).Warn("Failed to clear user data during full reset")
	}
	if err := s.repo.DeleteSessionToken(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to delete session token during full reset")
	}

	s.stateMu.Lock()
	s.user = nil
	s.onboardingCompleted = false
	s.userData = domain.DataMap{}
	s.sessionToken = ""
	s.stateMu.Unlock()
	s.publish()

	s.httpClient.ClearBearerToken()
	s.fanOut("paywall reset", func(ctx context.Context) error {
		return s.paywall.ResetUserData(ctx)
	})
	s.fanOut("campaign stop", func(ctx context.Context) error {
		return s.notifications.StopCampaign(ctx)
	})

	s.log.Info("All user data reset")
	return nil
}

// Snapshot returns the current observable state.
func (s *sessionService) Snapshot() domain.SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a state snapshot. Caller holds stateMu.
func (s *sessionService) snapshotLocked() domain.SessionState {
	return domain.SessionState{
		User:                s.user.Clone(),
		IsSignedIn:          s.user != nil,
		OnboardingCompleted: s.onboardingCompleted,
		UserData:            s.userData.Clone(),
	}
}

// Subscribe registers a state observer.
func (s *sessionService) Subscribe() <-chan domain.SessionState {
	ch := make(chan domain.SessionState, 1)
	s.subMu.Lock()
	s.subscribers[ch] = ch
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (s *sessionService) Unsubscribe(ch <-chan domain.SessionState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if sender, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(sender)
	}
}

// publish delivers the current snapshot to every subscriber without
// blocking: a full buffer is replaced by the newer snapshot so slow
// observers see the latest state rather than a backlog.
func (s *sessionService) publish() {
	snap := s.Snapshot()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// syncPaywallAttributes recomputes the flattened attribute set and pushes it
// to the paywall service in the background. Only meaningful while signed in.
func (s *sessionService) syncPaywallAttributes() {
	s.stateMu.RLock()
	user := s.user
	onboarding := s.onboardingCompleted
	data := s.userData.Clone()
	s.stateMu.RUnlock()

	if user == nil {
		return
	}

	attrs := domain.DataMap{
		"user_id":              user.ID,
		"onboarding_completed": onboarding,
		"account_age_days":     user.AccountAgeDays(s.clock()),
	}
	if user.Email != "" {
		attrs["email"] = user.Email
	}
	if user.Name != "" {
		attrs["name"] = user.Name
	}
	attrs = attrs.Merge(data)

	s.fanOut("paywall attributes", func(ctx context.Context) error {
		return s.paywall.SetUserAttributes(ctx, attrs)
	})
}

// fanOut runs a collaborator call in the background. Failures are logged
// and isolated; already_running from the scheduler is an expected warning.
func (s *sessionService) fanOut(op string, call func(ctx context.Context) error) {
	s.fanout.Add(1)
	go func() {
		defer s.fanout.Done()
		ctx, cancel := context.WithTimeout(context.Background(), fanOutTimeout)
		defer cancel()
		if err := call(ctx); err != nil {
			if errors.IsType(err, errors.ErrorTypeAlreadyRunning) {
				s.log.WithField("op", op).Warn("Campaign already running")
				return
			}
			s.log.WithError(err).WithField("op", op).Warn("Collaborator fan-out failed")
		}
	}()
}

// waitForFanOut blocks until all in-flight fan-out calls complete. Test
// helper; production callers never wait on fan-out.
func (s *sessionService) waitForFanOut() {
	s.fanout.Wait()
}
