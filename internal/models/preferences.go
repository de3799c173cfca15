// internal/models/preferences.go
package models

// Notification channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Notification categories.
const (
	CategoryMessages   = "messages"
	CategoryPayments   = "payments"
	CategoryMilestones = "milestones"
	CategoryUploads    = "uploads"
	CategoryMentions   = "mentions"
	CategorySystem     = "system"
)

// Digest frequencies.
const (
	DigestDaily   = "daily"
	DigestWeekly  = "weekly"
	DigestMonthly = "monthly"
)

// NotificationPreferences is the per-user opt-in matrix. Every boolean defaults
// to enabled: a missing row or a NULL column reads as true, only an explicit
// false disables a (channel, category) pair.
type NotificationPreferences struct {
	UserID string `json:"userId"`

	InAppMessages   bool `json:"in_app_messages"`
	InAppPayments   bool `json:"in_app_payments"`
	InAppMilestones bool `json:"in_app_milestones"`
	InAppUploads    bool `json:"in_app_uploads"`
	InAppMentions   bool `json:"in_app_mentions"`
	InAppSystem     bool `json:"in_app_system"`

	EmailMessages   bool `json:"email_messages"`
	EmailPayments   bool `json:"email_payments"`
	EmailMilestones bool `json:"email_milestones"`
	EmailUploads    bool `json:"email_uploads"`
	EmailMentions   bool `json:"email_mentions"`
	EmailSystem     bool `json:"email_system"`

	PushMessages   bool `json:"push_messages"`
	PushPayments   bool `json:"push_payments"`
	PushMilestones bool `json:"push_milestones"`
	PushUploads    bool `json:"push_uploads"`
	PushMentions   bool `json:"push_mentions"`
	PushSystem     bool `json:"push_system"`

	EmailDigest          bool   `json:"email_digest"`
	EmailDigestFrequency string `json:"email_digest_frequency"`

	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start"` // "HH:MM"
	QuietHoursEnd     string `json:"quiet_hours_end"`   // "HH:MM"
	Timezone          string `json:"timezone"`
}

// DefaultPreferences returns the matrix a user without a stored row gets:
// everything on, weekly digest, quiet hours off.
func DefaultPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID: userID,

		InAppMessages:   true,
		InAppPayments:   true,
		InAppMilestones: true,
		InAppUploads:    true,
		InAppMentions:   true,
		InAppSystem:     true,

		EmailMessages:   true,
		EmailPayments:   true,
		EmailMilestones: true,
		EmailUploads:    true,
		EmailMentions:   true,
		EmailSystem:     true,

		PushMessages:   true,
		PushPayments:   true,
		PushMilestones: true,
		PushUploads:    true,
		PushMentions:   true,
		PushSystem:     true,

		EmailDigest:          true,
		EmailDigestFrequency: DigestWeekly,

		QuietHoursEnabled: false,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "08:00",
		Timezone:          "UTC",
	}
}

// Enabled reports whether the given (channel, category) pair is switched on.
// Unknown channels or categories read as enabled, matching the default-on rule.
func (p *NotificationPreferences) Enabled(channel, category string) bool {
	switch channel {
	case ChannelInApp:
		switch category {
		case CategoryMessages:
			return p.InAppMessages
		case CategoryPayments:
			return p.InAppPayments
		case CategoryMilestones:
			return p.InAppMilestones
		case CategoryUploads:
			return p.InAppUploads
		case CategoryMentions:
			return p.InAppMentions
		case CategorySystem:
			return p.InAppSystem
		}
	case ChannelEmail:
		switch category {
		case CategoryMessages:
			return p.EmailMessages
		case CategoryPayments:
			return p.EmailPayments
		case CategoryMilestones:
			return p.EmailMilestones
		case CategoryUploads:
			return p.EmailUploads
		case CategoryMentions:
			return p.EmailMentions
		case CategorySystem:
			return p.EmailSystem
		}
	case ChannelPush:
		switch category {
		case CategoryMessages:
			return p.PushMessages
		case CategoryPayments:
			return p.PushPayments
		case CategoryMilestones:
			return p.PushMilestones
		case CategoryUploads:
			return p.PushUploads
		case CategoryMentions:
			return p.PushMentions
		case CategorySystem:
			return p.PushSystem
		}
	}
	return true
}
