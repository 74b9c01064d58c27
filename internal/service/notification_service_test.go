package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appcore/internal/domain"
	"appcore/internal/repository"
	"appcore/pkg/errors"
	"appcore/pkg/logger"
)

// recordingSender captures deliveries and badge updates for assertions.
type recordingSender struct {
	mu     sync.Mutex
	sent   []domain.Notification
	badges []int
}

func (s *recordingSender) Send(ctx context.Context, n domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) SetBadge(ctx context.Context, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append(s.badges, count)
	return nil
}

func (s *recordingSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *recordingSender) lastSent() (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return domain.Notification{}, false
	}
	return s.sent[len(s.sent)-1], true
}

func newNotificationFixture(t *testing.T) (*notificationService, *recordingSender, *repository.MemoryRepository) {
	t.Helper()
	sender := &recordingSender{}
	repo := repository.NewMemoryRepository()
	svc := NewNotificationService(sender, repo, logger.NewNop()).(*notificationService)
	return svc, sender, repo
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestNotificationService_PermissionMachine(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newNotificationFixture(t)

	assert.Equal(t, PermissionUndetermined, svc.Permission())

	status, err := svc.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionAuthorized, status)

	// Once determined, the state never changes again
	svc.authorize = func(ctx context.Context) (PermissionStatus, error) {
		t.Fatal("authorize must not be called after the state is determined")
		return PermissionDenied, nil
	}
	status, err = svc.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionAuthorized, status)
}

func TestNotificationService_PermissionDenied(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newNotificationFixture(t)
	svc.authorize = func(ctx context.Context) (PermissionStatus, error) {
		return PermissionDenied, nil
	}

	status, err := svc.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, status)

	// Immediate sends are silent no-ops without a grant
	require.NoError(t, svc.SendNow(ctx, "hello", "world"))
	assert.Zero(t, sender.sentCount())

	// Delayed sends are rejected outright
	err = svc.Schedule(ctx, domain.Notification{Title: "later"}, time.Hour)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotAllowed))
}

func TestNotificationService_SendNow(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SendNow(ctx, "title", "body"))
	require.Equal(t, 1, sender.sentCount())

	n, ok := sender.lastSent()
	require.True(t, ok)
	assert.Equal(t, "title", n.Title)
	assert.Equal(t, "body", n.Body)
	assert.NotEmpty(t, n.ID)
}

func TestNotificationService_Schedule_InvalidDelay(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	err = svc.Schedule(ctx, domain.Notification{Title: "x"}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidDelay))

	err = svc.Schedule(ctx, domain.Notification{Title: "x"}, -time.Second)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidDelay))
}

func TestNotificationService_Schedule_DeliversAfterDelay(t *testing.T) {
	ctx := context.Background()
	svc, sender, repo := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	badgeVal := 3
	n := domain.Notification{ID: "n-1", Title: "delayed", Badge: &badgeVal}
	require.NoError(t, svc.Schedule(ctx, n, 10*time.Millisecond))

	waitFor(t, time.Second, func() bool { return sender.sentCount() == 1 })

	delivered, _ := sender.lastSent()
	assert.Equal(t, "n-1", delivered.ID)

	// A carried badge value is persisted on delivery
	waitFor(t, time.Second, func() bool {
		count, err := repo.LoadBadgeCount(ctx)
		return err == nil && count == 3
	})
}

func TestNotificationService_Schedule_PermissionRecheckedAtFireTime(t *testing.T) {
	ctx := context.Background()
	svc, sender, _ := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Schedule(ctx, domain.Notification{ID: "n-1", Title: "x"}, 20*time.Millisecond))

	// Revoke before the timer fires
	svc.mu.Lock()
	svc.permission = PermissionDenied
	svc.mu.Unlock()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, sender.sentCount())
}

func TestNotificationService_Campaign_StartOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.clock = func() time.Time { return started }

	require.NoError(t, svc.StartCampaign(ctx))

	marker, err := repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, marker.Equal(started))

	// Every campaign entry has a pending timer
	svc.mu.Lock()
	pending := len(svc.pending)
	svc.mu.Unlock()
	assert.Equal(t, len(domain.ReengagementCampaign), pending)

	// A second start fails with already_running
	err = svc.StartCampaign(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAlreadyRunning))
}

func TestNotificationService_Campaign_Stop(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.StartCampaign(ctx))
	// A non-campaign notification must survive the stop
	require.NoError(t, svc.Schedule(ctx, domain.Notification{ID: "standalone", Title: "x"}, time.Hour))

	require.NoError(t, svc.StopCampaign(ctx))

	marker, err := repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, marker.IsZero())

	svc.mu.Lock()
	_, standaloneKept := svc.pending["standalone"]
	pending := len(svc.pending)
	svc.mu.Unlock()
	assert.True(t, standaloneKept)
	assert.Equal(t, 1, pending)

	// Stopping after a stop is harmless
	assert.NoError(t, svc.StopCampaign(ctx))
}

func TestNotificationService_Campaign_DisabledSkipsStart(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.SetEnabled(ctx, false))
	require.NoError(t, svc.StartCampaign(ctx))

	marker, err := repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, marker.IsZero())
}

func TestNotificationService_Campaign_DisableStopsActive(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.StartCampaign(ctx))
	require.NoError(t, svc.SetEnabled(ctx, false))

	marker, err := repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, marker.IsZero())

	svc.mu.Lock()
	pending := len(svc.pending)
	svc.mu.Unlock()
	assert.Zero(t, pending)
}

func TestNotificationService_Resume(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newNotificationFixture(t)
	_, err := svc.RequestPermission(ctx)
	require.NoError(t, err)

	// Campaign started 48h ago: the 1h and 24h entries are already past
	started := time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.SaveCampaignStart(ctx, started))

	require.NoError(t, svc.Resume(ctx))

	svc.mu.Lock()
	pending := len(svc.pending)
	_, welcomePending := svc.pending[domain.CampaignIDPrefix+"welcome"]
	_, checkinPending := svc.pending[domain.CampaignIDPrefix+"checkin"]
	svc.mu.Unlock()

	assert.Equal(t, 3, pending)
	assert.False(t, welcomePending)
	assert.True(t, checkinPending)

	// The recorded start instant never moves on resume
	marker, err := repo.LoadCampaignStart(ctx)
	require.NoError(t, err)
	assert.True(t, marker.Equal(started))
}

func TestNotificationService_Resume_NoMarkerIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newNotificationFixture(t)

	require.NoError(t, svc.Resume(ctx))

	svc.mu.Lock()
	pending := len(svc.pending)
	svc.mu.Unlock()
	assert.Zero(t, pending)
}

func TestNotificationService_Badge(t *testing.T) {
	ctx := context.Background()
	svc, sender, repo := newNotificationFixture(t)

	require.NoError(t, svc.SetBadge(ctx, 7))

	count, err := svc.BadgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	persisted, err := repo.LoadBadgeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, persisted)

	sender.mu.Lock()
	badges := append([]int(nil), sender.badges...)
	sender.mu.Unlock()
	assert.Equal(t, []int{7}, badges)

	// Negative counts clamp to zero
	require.NoError(t, svc.SetBadge(ctx, -4))
	count, err = svc.BadgeCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
