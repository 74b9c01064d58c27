package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"appcore/internal/domain"
	"appcore/internal/repository"
	"appcore/pkg/errors"
	"appcore/pkg/logger"
)

// notificationService implements NotificationService. Delayed deliveries run
// on in-process timers; the campaign start marker lives in the repository so
// a process restart resumes the schedule instead of re-triggering it.
type notificationService struct {
	mu         sync.Mutex
	permission PermissionStatus
	enabled    bool
	pending    map[string]*time.Timer

	// authorize resolves the permission prompt the first time permission is
	// requested. Injectable so tests and headless deployments can decide.
	authorize func(ctx context.Context) (PermissionStatus, error)
	clock     func() time.Time

	sender   NotificationSender
	repo     repository.CampaignRepository
	campaign []domain.CampaignNotification
	log      *logger.Logger
}

// NewNotificationService creates the scheduler with the fixed re-engagement
// campaign and campaigns enabled.
func NewNotificationService(sender NotificationSender, repo repository.CampaignRepository, log *logger.Logger) NotificationService {
	return &notificationService{
		permission: PermissionUndetermined,
		enabled:    true,
		pending:    make(map[string]*time.Timer),
		authorize: func(ctx context.Context) (PermissionStatus, error) {
			return PermissionAuthorized, nil
		},
		clock:    time.Now,
		sender:   sender,
		repo:     repo,
		campaign: domain.ReengagementCampaign,
		log:      log,
	}
}

// RequestPermission resolves the permission state. Repeated calls after the
// state is determined return the current grant unchanged.
func (s *notificationService) RequestPermission(ctx context.Context) (PermissionStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.permission != PermissionUndetermined {
		return s.permission, nil
	}

	status, err := s.authorize(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Permission request failed")
		return PermissionUndetermined, errors.NewSchedulingFailedError("permission request failed", err)
	}
	s.permission = status
	s.log.WithField("permission", string(status)).Info("Notification permission resolved")
	return status, nil
}

// Permission returns the current permission state without prompting.
func (s *notificationService) Permission() PermissionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// SendNow delivers a notification immediately. Without a granted permission
// this is a silent no-op.
func (s *notificationService) SendNow(ctx context.Context, title, body string) error {
	s.mu.Lock()
	granted := s.permission.Granted()
	s.mu.Unlock()

	if !granted {
		s.log.Debug("Immediate notification skipped, permission not granted")
		return nil
	}

	n := domain.Notification{
		ID:    uuid.NewString(),
		Title: title,
		Body:  body,
	}
	if err := s.sender.Send(ctx, n); err != nil {
		return errors.NewSchedulingFailedError("failed to deliver notification", err)
	}
	return nil
}

// Schedule delivers a notification after delay.
func (s *notificationService) Schedule(ctx context.Context, n domain.Notification, delay time.Duration) error {
	if delay <= 0 {
		return errors.NewInvalidDelayError("notification delay must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.permission.Granted() {
		return errors.NewNotAllowedError("notification permission not granted")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	s.scheduleLocked(n, delay)
	return nil
}

// scheduleLocked arms a delivery timer for n. Caller holds s.mu.
func (s *notificationService) scheduleLocked(n domain.Notification, delay time.Duration) {
	if timer, ok := s.pending[n.ID]; ok {
		timer.Stop()
	}
	s.pending[n.ID] = time.AfterFunc(delay, func() {
		s.deliver(n)
	})
}

// deliver fires a scheduled notification. Permission is re-checked at
// delivery time, so entries scheduled before a denial never reach the user.
func (s *notificationService) deliver(n domain.Notification) {
	s.mu.Lock()
	delete(s.pending, n.ID)
	granted := s.permission.Granted()
	s.mu.Unlock()

	if !granted {
		s.log.WithField("notification_id", n.ID).Debug("Scheduled notification skipped, permission not granted")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.sender.Send(ctx, n); err != nil {
		s.log.WithError(err).WithField("notification_id", n.ID).Warn("Failed to deliver scheduled notification")
		return
	}
	if n.Badge != nil {
		if err := s.setBadge(ctx, *n.Badge); err != nil {
			s.log.WithError(err).WithField("notification_id", n.ID).Warn("Failed to update badge after delivery")
		}
	}
}

// StartCampaign records the campaign start instant and schedules every entry
// relative to it.
func (s *notificationService) StartCampaign(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		s.log.Info("Campaign start skipped, campaigns disabled")
		return nil
	}

	startedAt, err := s.repo.LoadCampaignStart(ctx)
	if err != nil {
		return err
	}
	if !startedAt.IsZero() {
		return errors.NewAlreadyRunningError("re-engagement campaign already started")
	}

	now := s.clock()
	if err := s.repo.SaveCampaignStart(ctx, now); err != nil {
		return err
	}

	for _, entry := range s.campaign {
		s.scheduleLocked(domain.NotificationFromCampaign(entry), entry.Delay())
	}
	s.log.WithField("entries", len(s.campaign)).Info("Re-engagement campaign started")
	return nil
}

// StopCampaign cancels pending campaign entries and clears the start marker.
// Entries already delivered are unaffected.
func (s *notificationService) StopCampaign(ctx context.Context) error {
	s.mu.Lock()
	cancelled := 0
	for id, timer := range s.pending {
		if strings.HasPrefix(id, domain.CampaignIDPrefix) {
			timer.Stop()
			delete(s.pending, id)
			cancelled++
		}
	}
	s.mu.Unlock()

	if err := s.repo.ClearCampaignStart(ctx); err != nil {
		return err
	}
	s.log.WithField("cancelled", cancelled).Info("Re-engagement campaign stopped")
	return nil
}

// Resume reschedules campaign entries still in the future after a process
// restart. The recorded start instant does not move, so delivered entries
// stay delivered.
func (s *notificationService) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	startedAt, err := s.repo.LoadCampaignStart(ctx)
	if err != nil {
		return err
	}
	if startedAt.IsZero() {
		return nil
	}

	now := s.clock()
	resumed := 0
	for _, entry := range s.campaign {
		remaining := startedAt.Add(entry.Delay()).Sub(now)
		if remaining <= 0 {
			continue
		}
		s.scheduleLocked(domain.NotificationFromCampaign(entry), remaining)
		resumed++
	}
	if resumed > 0 {
		s.log.WithField("entries", resumed).Info("Re-engagement campaign resumed")
	}
	return nil
}

// SetEnabled toggles campaigns globally. Disabling while a campaign is
// active also stops it.
func (s *notificationService) SetEnabled(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()

	if !enabled {
		return s.StopCampaign(ctx)
	}
	return nil
}

// SetBadge updates the platform badge and the persisted counter together.
func (s *notificationService) SetBadge(ctx context.Context, count int) error {
	return s.setBadge(ctx, count)
}

func (s *notificationService) setBadge(ctx context.Context, count int) error {
	if count < 0 {
		count = 0
	}
	if err := s.repo.SaveBadgeCount(ctx, count); err != nil {
		return err
	}
	if err := s.sender.SetBadge(ctx, count); err != nil {
		// The persisted counter is authoritative; a display failure is not.
		s.log.WithError(err).Warn("Failed to update platform badge")
	}
	return nil
}

// BadgeCount returns the persisted badge counter.
func (s *notificationService) BadgeCount(ctx context.Context) (int, error) {
	return s.repo.LoadBadgeCount(ctx)
}
