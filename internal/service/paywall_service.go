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

// remoteCallTimeout bounds fire-and-forget calls to the paywall backend.
const remoteCallTimeout = 15 * time.Second

// paywallService wraps the remote paywall SDK. User attributes are merged
// monotonically into a local mirror persisted through the repository and
// pushed to the remote backend; the remote pushes are fire-and-forget so an
// unreachable backend never fails a state operation.
type paywallService struct {
	mu         sync.RWMutex
	configured bool
	debug      bool
	apiKey     string
	attrs      domain.DataMap
	status     domain.SubscriptionStatus

	client *httpclient.Client
	repo   repository.AttributeRepository
	log    *logger.Logger
}

// NewPaywallService creates the paywall wrapper. Configure must be called
// before any other operation.
func NewPaywallService(client *httpclient.Client, repo repository.AttributeRepository, log *logger.Logger) PaywallService {
	return &paywallService{
		attrs:  domain.DataMap{},
		status: domain.SubscriptionFree,
		client: client,
		repo:   repo,
		log:    log,
	}
}

// Configure performs one-time setup: the durable attribute mirror is loaded
// and the remote SDK activated. Calls after the first only update the debug
// flag.
func (s *paywallService) Configure(ctx context.Context, apiKey string, debug bool) error {
	// The lock spans the configured check and the setup so concurrent
	// first-time calls cannot both run it.
	s.mu.Lock()
	if s.configured {
		s.debug = debug
		s.mu.Unlock()
		s.log.Debug("Paywall already configured, debug flag updated")
		return nil
	}
	if apiKey == "" {
		s.mu.Unlock()
		return errors.NewInvalidInputError("paywall API key is required", nil)
	}

	attrs, err := s.repo.LoadAttributes(ctx)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.configured = true
	s.debug = debug
	s.apiKey = apiKey
	s.attrs = attrs
	if raw, ok := attrs["subscription_status"].(string); ok && domain.SubscriptionStatus(raw).Valid() {
		s.status = domain.SubscriptionStatus(raw)
	}
	s.mu.Unlock()

	s.fireRemote("activate", func(ctx context.Context) error {
		return s.client.Post(ctx, "/v1/sdk/activate", map[string]interface{}{"api_key": apiKey}, nil)
	})
	s.log.Info("Paywall service configured")
	return nil
}

func (s *paywallService) ensureConfigured() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.configured {
		return errors.NewNotConfiguredError("paywall service not configured")
	}
	return nil
}

// RegisterPlacement asks the remote decision system to evaluate a named
// placement. Whether a paywall is presented is decided remotely and is not
// observable here.
func (s *paywallService) RegisterPlacement(ctx context.Context, name string, params domain.DataMap) error {
	if err := s.ensureConfigured(); err != nil {
		return err
	}
	if name == "" {
		return errors.NewInvalidInputError("placement name is required", nil)
	}

	payload := map[string]interface{}{
		"placement": name,
		"params":    params.Normalize(),
	}
	s.fireRemote("placement "+name, func(ctx context.Context) error {
		return s.client.Post(ctx, "/v1/placements", payload, nil)
	})
	return nil
}

// SetUserAttributes merges attrs by key into the durable local mirror and
// pushes the merged set remotely.
func (s *paywallService) SetUserAttributes(ctx context.Context, attrs domain.DataMap) error {
	if err := s.ensureConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	merged := s.attrs.Merge(attrs)
	s.attrs = merged
	s.mu.Unlock()

	if err := s.repo.SaveAttributes(ctx, merged); err != nil {
		return err
	}

	s.fireRemote("attributes", func(ctx context.Context) error {
		return s.client.Post(ctx, "/v1/attributes", merged, nil)
	})
	return nil
}

// Attributes returns a copy of the current attribute mirror.
func (s *paywallService) Attributes() domain.DataMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs.Clone()
}

// SubscriptionStatus returns the tracked subscription state.
func (s *paywallService) SubscriptionStatus() domain.SubscriptionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// HandlePurchaseCompleted records a completed purchase.
func (s *paywallService) HandlePurchaseCompleted(ctx context.Context, productID string, isTrial bool) error {
	status := domain.SubscriptionPremium
	if isTrial {
		status = domain.SubscriptionTrial
	}
	return s.transition(ctx, status, domain.DataMap{"last_product_id": productID})
}

// HandleRestoreCompleted records a successful purchase restoration.
func (s *paywallService) HandleRestoreCompleted(ctx context.Context) error {
	return s.transition(ctx, domain.SubscriptionPremium, nil)
}

// HandleCancellation records a subscription cancellation.
func (s *paywallService) HandleCancellation(ctx context.Context) error {
	return s.transition(ctx, domain.SubscriptionCancelled, nil)
}

// HandleExpiration records a subscription expiry.
func (s *paywallService) HandleExpiration(ctx context.Context) error {
	return s.transition(ctx, domain.SubscriptionExpired, nil)
}

// transition applies an explicit subscription transition and mirrors it into
// the attribute store.
func (s *paywallService) transition(ctx context.Context, status domain.SubscriptionStatus, extra domain.DataMap) error {
	if err := s.ensureConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	previous := s.status
	s.status = status
	s.mu.Unlock()

	s.log.WithFields(map[string]interface{}{
		"from": string(previous),
		"to":   string(status),
	}).Info("Subscription status transition")

	attrs := domain.DataMap{"subscription_status": string(status)}
	for k, v := range extra {
		attrs[k] = v
	}
	return s.SetUserAttributes(ctx, attrs)
}

// ResetUserData clears the local attribute mirror and instructs the remote
// SDK to forget the user. Called on sign-out and full resets.
func (s *paywallService) ResetUserData(ctx context.Context) error {
	if err := s.ensureConfigured(); err != nil {
		return err
	}

	s.mu.Lock()
	s.attrs = domain.DataMap{}
	s.status = domain.SubscriptionFree
	s.mu.Unlock()

	if err := s.repo.DeleteAttributes(ctx); err != nil {
		return err
	}

	s.fireRemote("reset", func(ctx context.Context) error {
		return s.client.Delete(ctx, "/v1/users/me", nil)
	})
	s.log.Info("Paywall user data reset")
	return nil
}

// fireRemote runs a remote SDK call in the background. Failures are logged,
// never propagated.
func (s *paywallService) fireRemote(op string, call func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
		defer cancel()
		if err := call(ctx); err != nil {
			s.log.WithError(err).WithField("op", op).Warn("Paywall remote call failed")
		}
	}()
}
