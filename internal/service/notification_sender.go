package service

import (
	"context"

	"appcore/internal/domain"
	"appcore/pkg/httpclient"
	"appcore/pkg/logger"
)

// NotificationSender delivers notifications and badge updates to the
// platform. The scheduler is sender-agnostic: production wires a push
// gateway, development and tests wire the log sender.
type NotificationSender interface {
	// Send delivers a single notification
	Send(ctx context.Context, n domain.Notification) error

	// SetBadge updates the platform badge display
	SetBadge(ctx context.Context, count int) error
}

// pushGatewaySender delivers notifications through a remote push gateway.
type pushGatewaySender struct {
	client *httpclient.Client
	log    *logger.Logger
}

// NewPushGatewaySender creates a sender that POSTs notifications to a push
// gateway over the shared REST client.
func NewPushGatewaySender(client *httpclient.Client, log *logger.Logger) NotificationSender {
	return &pushGatewaySender{client: client, log: log}
}

func (s *pushGatewaySender) Send(ctx context.Context, n domain.Notification) error {
	return s.client.Post(ctx, "/v1/push", n, nil)
}

func (s *pushGatewaySender) SetBadge(ctx context.Context, count int) error {
	return s.client.Post(ctx, "/v1/badge", map[string]interface{}{"count": count}, nil)
}

// logSender writes notifications to the log instead of delivering them.
type logSender struct {
	log *logger.Logger
}

// NewLogSender creates a sender for environments without a push gateway.
func NewLogSender(log *logger.Logger) NotificationSender {
	return &logSender{log: log}
}

func (s *logSender) Send(ctx context.Context, n domain.Notification) error {
	s.log.WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"title":           n.Title,
		"type":            n.Type,
	}).Info("Notification delivered (log sender)")
	return nil
}

func (s *logSender) SetBadge(ctx context.Context, count int) error {
	s.log.WithField("count", count).Debug("Badge updated (log sender)")
	return nil
}
