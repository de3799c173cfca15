// internal/models/job.go
package models

import "time"

// Job statuses. A job is eligible for processing only while pending and under
// the attempt ceiling; sent and exhausted are terminal. Rows are never deleted
// so the table doubles as a delivery audit trail.
const (
	JobStatusPending   = "pending"
	JobStatusSent      = "sent"
	JobStatusExhausted = "exhausted"
)

// EmailJob is a unit of deferred outbound email.
type EmailJob struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"userId"`
	ToEmail       string                 `json:"toEmail"` // denormalized at enqueue time
	Subject       string                 `json:"subject"`
	Template      string                 `json:"template"`
	TemplateData  map[string]interface{} `json:"templateData"`
	Status        string                 `json:"status"`
	Attempts      int                    `json:"attempts"`
	CreatedAt     time.Time              `json:"createdAt"`
	LastAttemptAt *time.Time             `json:"lastAttemptAt,omitempty"`
	SentAt        *time.Time             `json:"sentAt,omitempty"`
	ErrorMessage  string                 `json:"errorMessage,omitempty"`
}
