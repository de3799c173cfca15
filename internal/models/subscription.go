// internal/models/subscription.go
package models

import "time"

// PushSubscription is a registered browser push endpoint for a user. Each row
// maps 1:1 to a live browser subscription; when the push service reports the
// endpoint gone the row must be deleted promptly.
type PushSubscription struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Endpoint   string    `json:"endpoint"` // unique per device registration
	P256dhKey  string    `json:"p256dhKey"`
	AuthKey    string    `json:"authKey"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}
