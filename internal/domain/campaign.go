package domain

import "time"

// CampaignIDPrefix namespaces every re-engagement campaign notification so
// the scheduler can cancel pending campaign entries without touching other
// scheduled notifications.
const CampaignIDPrefix = "campaign-"

// CampaignNotification is one fixed entry in the re-engagement schedule.
// DelayHours is relative to the recorded campaign start instant. Entries are
// immutable and defined at build time.
type CampaignNotification struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Body       string  `json:"body"`
	DelayHours float64 `json:"delay_hours"`
	Type       string  `json:"type"`
	Badge      *int    `json:"badge,omitempty"`
}

// Delay returns the entry's offset from campaign start as a duration.
func (n CampaignNotification) Delay() time.Duration {
	return time.Duration(n.DelayHours * float64(time.Hour))
}

func badge(n int) *int { return &n }

// ReengagementCampaign is the fixed, ordered schedule started once when a
// signed-in user completes onboarding.
var ReengagementCampaign = []CampaignNotification{
	{
		ID:         CampaignIDPrefix + "welcome",
		Title:      "Welcome aboard",
		Body:       "You're all set up. Take a look around and make the app yours.",
		DelayHours: 1,
		Type:       "welcome",
		Badge:      badge(1),
	},
	{
		ID:         CampaignIDPrefix + "tips",
		Title:      "Get more out of your first day",
		Body:       "Three quick tips most new members miss.",
		DelayHours: 24,
		Type:       "tips",
	},
	{
		ID:         CampaignIDPrefix + "checkin",
		Title:      "Still with us?",
		Body:       "Your progress is saved right where you left it.",
		DelayHours: 72,
		Type:       "checkin",
		Badge:      badge(1),
	},
	{
		ID:         CampaignIDPrefix + "offer",
		Title:      "A little something for you",
		Body:       "Members who joined this week get early access to premium.",
		DelayHours: 120,
		Type:       "offer",
		Badge:      badge(2),
	},
	{
		ID:         CampaignIDPrefix + "comeback",
		Title:      "We miss you",
		Body:       "It's been a week. Pick up where you left off in one tap.",
		DelayHours: 168,
		Type:       "comeback",
	},
}

// Notification is a single local notification handed to a sender, either
// immediately or after a delay.
type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Type  string `json:"type,omitempty"`
	Badge *int   `json:"badge,omitempty"`
}

// NotificationFromCampaign converts a campaign entry into a deliverable
// notification.
func NotificationFromCampaign(entry CampaignNotification) Notification {
	return Notification{
		ID:    entry.ID,
		Title: entry.Title,
		Body:  entry.Body,
		Type:  entry.Type,
		Badge: entry.Badge,
	}
}
