package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appcore/internal/domain"
	"appcore/internal/repository"
	"appcore/pkg/errors"
	"appcore/pkg/httpclient"
	"appcore/pkg/logger"
)

func newPaywallFixture(t *testing.T) (PaywallService, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	log := logger.NewNop()
	client := httpclient.New(httpclient.Config{}, log)
	return NewPaywallService(client, repo, log), repo
}

func TestPaywallService_RequiresConfiguration(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPaywallFixture(t)

	err := svc.RegisterPlacement(ctx, "home", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotConfigured))

	err = svc.SetUserAttributes(ctx, domain.DataMap{"k": "v"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotConfigured))

	err = svc.HandlePurchaseCompleted(ctx, "product-1", false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotConfigured))

	err = svc.ResetUserData(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotConfigured))
}

func TestPaywallService_Configure(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPaywallFixture(t)

	err := svc.Configure(ctx, "", false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))

	require.NoError(t, svc.Configure(ctx, "pk_test", false))

	// Later calls only update the debug flag, never reconfigure
	require.NoError(t, svc.Configure(ctx, "pk_other", true))

	impl := svc.(*paywallService)
	impl.mu.RLock()
	defer impl.mu.RUnlock()
	assert.Equal(t, "pk_test", impl.apiKey)
	assert.True(t, impl.debug)
}

func TestPaywallService_Configure_ConcurrentFirstCall(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPaywallFixture(t)

	// Race two first-time configurations; exactly one must win the setup
	// and the loser degrades to a debug-flag update.
	var wg sync.WaitGroup
	for _, key := range []string{"pk_first", "pk_second"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			assert.NoError(t, svc.Configure(ctx, key, false))
		}(key)
	}
	wg.Wait()

	impl := svc.(*paywallService)
	impl.mu.RLock()
	defer impl.mu.RUnlock()
	assert.True(t, impl.configured)
	assert.Contains(t, []string{"pk_first", "pk_second"}, impl.apiKey)

	winner := impl.apiKey
	impl.mu.RUnlock()
	require.NoError(t, svc.Configure(ctx, "pk_late", true))
	impl.mu.RLock()
	assert.Equal(t, winner, impl.apiKey)
	assert.True(t, impl.debug)
}

func TestPaywallService_Configure_RestoresDurableState(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	log := logger.NewNop()
	client := httpclient.New(httpclient.Config{}, log)

	require.NoError(t, repo.SaveAttributes(ctx, domain.DataMap{
		"subscription_status": "premium",
		"level":               4,
	}))

	svc := NewPaywallService(client, repo, log)
	require.NoError(t, svc.Configure(ctx, "pk_test", false))

	assert.Equal(t, domain.SubscriptionPremium, svc.SubscriptionStatus())
	attrs := svc.Attributes()
	assert.Equal(t, float64(4), attrs["level"])
}

func TestPaywallService_SetUserAttributes_MergesAndPersists(t *testing.T) {
	ctx := context.Background()
	svc, repo := newPaywallFixture(t)
	require.NoError(t, svc.Configure(ctx, "pk_test", false))

	require.NoError(t, svc.SetUserAttributes(ctx, domain.DataMap{"plan": "free", "level": 1}))
	require.NoError(t, svc.SetUserAttributes(ctx, domain.DataMap{"level": 2}))

	attrs := svc.Attributes()
	assert.Equal(t, "free", attrs["plan"])
	assert.Equal(t, float64(2), attrs["level"])

	persisted, err := repo.LoadAttributes(ctx)
	require.NoError(t, err)
	assert.True(t, attrs.Equal(persisted))
}

func TestPaywallService_RegisterPlacement_EmptyName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPaywallFixture(t)
	require.NoError(t, svc.Configure(ctx, "pk_test", false))

	err := svc.RegisterPlacement(ctx, "", nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidInput))

	assert.NoError(t, svc.RegisterPlacement(ctx, "onboarding_end", domain.DataMap{"source": "test"}))
}

func TestPaywallService_SubscriptionTransitions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPaywallFixture(t)
	require.NoError(t, svc.Configure(ctx, "pk_test", false))

	assert.Equal(t, domain.SubscriptionFree, svc.SubscriptionStatus())

	require.NoError(t, svc.HandlePurchaseCompleted(ctx, "product-1", true))
	assert.Equal(t, domain.SubscriptionTrial, svc.SubscriptionStatus())

	require.NoError(t, svc.HandlePurchaseCompleted(ctx, "product-1", false))
	assert.Equal(t, domain.SubscriptionPremium, svc.SubscriptionStatus())

	require.NoError(t, svc.HandleCancellation(ctx))
	assert.Equal(t, domain.SubscriptionCancelled, svc.SubscriptionStatus())

	require.NoError(t, svc.HandleRestoreCompleted(ctx))
	assert.Equal(t, domain.SubscriptionPremium, svc.SubscriptionStatus())

	require.NoError(t, svc.HandleExpiration(ctx))
	assert.Equal(t, domain.SubscriptionExpired, svc.SubscriptionStatus())

	// Transitions mirror into the attribute store
	attrs := svc.Attributes()
	assert.Equal(t, "expired", attrs["subscription_status"])
	assert.Equal(t, "product-1", attrs["last_product_id"])
}

func TestPaywallService_ResetUserData(t *testing.T) {
	ctx := context.Background()
	svc, repo := newPaywallFixture(t)
	require.NoError(t, svc.Configure(ctx, "pk_test", false))

	require.NoError(t, svc.HandlePurchaseCompleted(ctx, "product-1", false))
	require.NoError(t, svc.SetUserAttributes(ctx, domain.DataMap{"level": 9}))

	require.NoError(t, svc.ResetUserData(ctx))

	assert.Empty(t, svc.Attributes())
	assert.Equal(t, domain.SubscriptionFree, svc.SubscriptionStatus())

	persisted, err := repo.LoadAttributes(ctx)
	require.NoError(t, err)
	assert.Empty(t, persisted)
}
