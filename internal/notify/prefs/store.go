// internal/notify/prefs/store.go
package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"formative-notifications/internal/common/errors"
	"formative-notifications/internal/common/logger"
	"formative-notifications/internal/models"
)

// Store reads and writes the per-user notification preference matrix.
//
// Reads are default-on: a user without a stored row gets the full default
// matrix, and a NULL column in a stored row reads as enabled. Only an explicit
// false disables a setting. The pipeline itself never consults these values;
// gating happens in the caller (see notify.Notifier).
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "prefs-store"}),
	}
}

// updatableColumns whitelists the columns Update may touch.
var updatableColumns = map[string]bool{
	"in_app_messages": true, "in_app_payments": true, "in_app_milestones": true,
	"in_app_uploads": true, "in_app_mentions": true, "in_app_system": true,
	"email_messages": true, "email_payments": true, "email_milestones": true,
	"email_uploads": true, "email_mentions": true, "email_system": true,
	"push_messages": true, "push_payments": true, "push_milestones": true,
	"push_uploads": true, "push_mentions": true, "push_system": true,
	"email_digest": true, "email_digest_frequency": true,
	"quiet_hours_enabled": true, "quiet_hours_start": true,
	"quiet_hours_end": true, "timezone": true,
}

// Get returns the user's preferences, synthesizing defaults when no row exists.
func (s *Store) Get(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT in_app_messages, in_app_payments, in_app_milestones, in_app_uploads, in_app_mentions, in_app_system,
		       email_messages, email_payments, email_milestones, email_uploads, email_mentions, email_system,
		       push_messages, push_payments, push_milestones, push_uploads, push_mentions, push_system,
		       email_digest, email_digest_frequency,
		       quiet_hours_enabled, quiet_hours_start, quiet_hours_end, timezone
		FROM notification_preferences
		WHERE user_id = $1`,
		userID,
	)

	var b [19]sql.NullBool // 18 channel×category pairs + email_digest
	var quietEnabled sql.NullBool
	var digestFreq, quietStart, quietEnd, timezone sql.NullString

	err := row.Scan(
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5],
		&b[6], &b[7], &b[8], &b[9], &b[10], &b[11],
		&b[12], &b[13], &b[14], &b[15], &b[16], &b[17],
		&b[18], &digestFreq,
		&quietEnabled, &quietStart, &quietEnd, &timezone,
	)
	if err == sql.ErrNoRows {
		return models.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, errors.NewPreferencesFetchFailedError(err)
	}

	p := models.DefaultPreferences(userID)

	p.InAppMessages = boolOrOn(b[0])
	p.InAppPayments = boolOrOn(b[1])
	p.InAppMilestones = boolOrOn(b[2])
	p.InAppUploads = boolOrOn(b[3])
	p.InAppMentions = boolOrOn(b[4])
	p.InAppSystem = boolOrOn(b[5])

	p.EmailMessages = boolOrOn(b[6])
	p.EmailPayments = boolOrOn(b[7])
	p.EmailMilestones = boolOrOn(b[8])
	p.EmailUploads = boolOrOn(b[9])
	p.EmailMentions = boolOrOn(b[10])
	p.EmailSystem = boolOrOn(b[11])

	p.PushMessages = boolOrOn(b[12])
	p.PushPayments = boolOrOn(b[13])
	p.PushMilestones = boolOrOn(b[14])
	p.PushUploads = boolOrOn(b[15])
	p.PushMentions = boolOrOn(b[16])
	p.PushSystem = boolOrOn(b[17])

	p.EmailDigest = boolOrOn(b[18])
	if digestFreq.Valid && digestFreq.String != "" {
		p.EmailDigestFrequency = digestFreq.String
	}

	// Quiet hours are the one opt-in feature: absent reads as off.
	p.QuietHoursEnabled = quietEnabled.Valid && quietEnabled.Bool
	if quietStart.Valid && quietStart.String != "" {
		p.QuietHoursStart = quietStart.String
	}
	if quietEnd.Valid && quietEnd.String != "" {
		p.QuietHoursEnd = quietEnd.String
	}
	if timezone.Valid && timezone.String != "" {
		p.Timezone = timezone.String
	}

	return p, nil
}

// Update upserts only the named fields; everything else keeps its stored value
// (or its default, for a lazily created row). Unknown field names are rejected.
func (s *Store) Update(ctx context.Context, userID string, changes map[string]interface{}) error {
	if len(changes) == 0 {
		return nil
	}

	cols := make([]string, 0, len(changes))
	for col := range changes {
		if !updatableColumns[col] {
			return fmt.Errorf("unknown preference field: %s", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	insertCols := []string{"user_id"}
	placeholders := []string{"$1"}
	sets := make([]string, 0, len(cols))
	args := []interface{}{userID}
	for i, col := range cols {
		insertCols = append(insertCols, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		args = append(args, changes[col])
	}

	query := fmt.Sprintf(`
		INSERT INTO notification_preferences (%s)
		VALUES (%s)
		ON CONFLICT (user_id) DO UPDATE SET %s`,
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(sets, ", "),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	s.logger.Debug("preferences updated", map[string]interface{}{
		"userId": userID,
		"fields": cols,
	})
	return nil
}

func boolOrOn(v sql.NullBool) bool {
	if v.Valid {
		return v.Bool
	}
	return true
}

// InQuietHours reports whether now falls inside the user's quiet-hours window,
// evaluated in the user's timezone. A window whose start is after its end
// spans midnight. Malformed settings fail open (not quiet).
func InQuietHours(p *models.NotificationPreferences, now time.Time) bool {
	if p == nil || !p.QuietHoursEnabled {
		return false
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	start, err1 := parseClock(p.QuietHoursStart)
	end, err2 := parseClock(p.QuietHoursEnd)
	if err1 != nil || err2 != nil {
		return false
	}

	minutes := local.Hour()*60 + local.Minute()
	if start <= end {
		return minutes >= start && minutes < end
	}
	// Window spans midnight, e.g. 22:00-08:00.
	return minutes >= start || minutes < end
}

func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
