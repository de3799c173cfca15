// internal/models/notification.go
package models

import "time"

// Notification is an in-app notification row shown in the user's feed.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Category  string    `json:"category"` // messages, payments, milestones, uploads, mentions, system
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	ActionURL string    `json:"actionUrl,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
