// internal/notify/email/queue.go
package email

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"formative-notifications/internal/common/errors"
	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/common/metrics"
	"formative-notifications/internal/models"
)

// ProcessResult summarizes one queue drain. Error is set only for queue-level
// failures (e.g. the batch fetch itself); per-job dispatch failures are counted
// in Failed and recorded on the rows.
type ProcessResult struct {
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
}

// Queue is the durable email job store plus the batch drain operation. Jobs
// are created by application event handlers via Enqueue and mutated only by
// ProcessQueue. Rows are never deleted.
//
// Jobs within a batch are dispatched one at a time. There is no row claiming:
// running two processor instances against the same database is unsupported.
type Queue struct {
	db          *sql.DB
	dispatcher  *Dispatcher
	logger      logger.Logger
	batchSize   int
	maxAttempts int
}

func NewQueue(db *sql.DB, dispatcher *Dispatcher, log logger.Logger, batchSize, maxAttempts int) *Queue {
	return &Queue{
		db:          db,
		dispatcher:  dispatcher,
		logger:      log.WithFields(map[string]interface{}{"component": "email-queue"}),
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}
}

// Enqueue resolves the user's address and persists a pending job. An unknown
// user fails fast: no row is created. Nothing is sent synchronously.
func (q *Queue) Enqueue(ctx context.Context, userID, template, title, message string, data map[string]interface{}) (string, error) {
	var toEmail string
	err := q.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&toEmail)
	if err != nil {
		if err == sql.ErrNoRows {
			stdErr := errors.NewRecipientNotFoundError(userID)
			q.logger.Warn("enqueue skipped, recipient not found", map[string]interface{}{
				"userId": userID,
				"code":   string(stdErr.Code),
			})
			return "", stdErr
		}
		return "", fmt.Errorf("resolve recipient: %w", err)
	}

	templateData := map[string]interface{}{
		"title":   title,
		"message": message,
	}
	for k, v := range data {
		templateData[k] = v
	}

	tmpl, _ := LookupTemplate(template)
	subject := tmpl.Subject(templateData)

	dataJSON, err := json.Marshal(templateData)
	if err != nil {
		return "", fmt.Errorf("marshal template data: %w", err)
	}

	jobID := uuid.New().String()
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO email_jobs (id, user_id, to_email, subject, template, template_data, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)`,
		jobID, userID, toEmail, subject, template, dataJSON, models.JobStatusPending, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert email job: %w", err)
	}

	q.logger.Debug("job enqueued", map[string]interface{}{
		"jobId":    jobID,
		"userId":   userID,
		"template": template,
	})
	return jobID, nil
}

// FetchPending selects the next batch of eligible jobs, oldest first. A job is
// eligible while pending and under the attempt ceiling.
func (q *Queue) FetchPending(ctx context.Context) ([]*models.EmailJob, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, to_email, subject, template, template_data, status, attempts, created_at
		FROM email_jobs
		WHERE status = $1 AND attempts < $2
		ORDER BY created_at ASC
		LIMIT $3`,
		models.JobStatusPending, q.maxAttempts, q.batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.EmailJob
	for rows.Next() {
		job := &models.EmailJob{}
		var dataJSON []byte
		if err := rows.Scan(&job.ID, &job.UserID, &job.ToEmail, &job.Subject, &job.Template, &dataJSON, &job.Status, &job.Attempts, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan email job: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &job.TemplateData); err != nil {
				q.logger.Warn("corrupt template data, dispatching with empty payload", map[string]interface{}{
					"jobId": job.ID,
					"error": err.Error(),
				})
				job.TemplateData = map[string]interface{}{}
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (q *Queue) markSent(ctx context.Context, jobID, messageID string) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, `
		UPDATE email_jobs
		SET status = $2, sent_at = $3, last_attempt_at = $3
		WHERE id = $1`,
		jobID, models.JobStatusSent, now,
	)
	if err != nil {
		return errors.NewQueueUpdateFailedError(jobID, err)
	}
	q.logger.Debug("job sent", map[string]interface{}{"jobId": jobID, "messageId": messageID})
	return nil
}

// markFailed increments the attempt counter and records the error. When the
// counter reaches the ceiling the same statement moves the job to exhausted,
// so terminal state never depends on the selection predicate alone.
func (q *Queue) markFailed(ctx context.Context, jobID, errorMessage string) (exhausted bool, err error) {
	now := time.Now().UTC()
	var attempts int
	var status string
	err = q.db.QueryRowContext(ctx, `
		UPDATE email_jobs
		SET attempts = attempts + 1,
		    last_attempt_at = $2,
		    error_message = $3,
		    status = CASE WHEN attempts + 1 >= $4 THEN 'exhausted' ELSE status END
		WHERE id = $1
		RETURNING attempts, status`,
		jobID, now, errorMessage, q.maxAttempts,
	).Scan(&attempts, &status)
	if err != nil {
		return false, errors.NewQueueUpdateFailedError(jobID, err)
	}
	return status == models.JobStatusExhausted, nil
}

// ProcessQueue drains one batch. It never lets a failure escape its boundary:
// a queue-level error (storage unreachable) comes back as a zero-progress
// result with Error set, and per-job failures only increment counters.
func (q *Queue) ProcessQueue(ctx context.Context) ProcessResult {
	jobs, err := q.FetchPending(ctx)
	if err != nil {
		stdErr := errors.NewQueueFetchFailedError(err)
		q.logger.Error("queue fetch failed", map[string]interface{}{
			"code":  string(stdErr.Code),
			"error": err.Error(),
		})
		return ProcessResult{Error: stdErr.Message}
	}

	result := ProcessResult{Total: len(jobs)}
	for _, job := range jobs {
		dispatch := q.dispatcher.Dispatch(ctx, job)
		if dispatch.Success {
			if err := q.markSent(ctx, job.ID, dispatch.MessageID); err != nil {
				q.logger.Error("failed to mark job sent", map[string]interface{}{
					"jobId": job.ID,
					"error": err.Error(),
				})
				result.Failed++
				continue
			}
			metrics.EmailJobsProcessed.WithLabelValues("sent").Inc()
			result.Processed++
			continue
		}

		exhausted, err := q.markFailed(ctx, job.ID, dispatch.Error)
		if err != nil {
			q.logger.Error("failed to record job failure", map[string]interface{}{
				"jobId": job.ID,
				"error": err.Error(),
			})
		}
		if exhausted {
			metrics.EmailJobsProcessed.WithLabelValues("exhausted").Inc()
			q.logger.Warn("job exhausted", map[string]interface{}{
				"jobId":    job.ID,
				"attempts": job.Attempts + 1,
				"error":    dispatch.Error,
			})
		} else {
			metrics.EmailJobsProcessed.WithLabelValues("failed").Inc()
		}
		result.Failed++
	}

	return result
}
