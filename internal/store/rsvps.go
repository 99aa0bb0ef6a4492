// internal/store/rsvps.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reminder-workers/internal/reminders"
)

// RSVPStore reads the attendance side-tables the cascade depends on:
// per-event reminder settings and the confirmed_at flag the dispatcher
// rechecks before sending a starting nudge.
type RSVPStore struct {
	db *sql.DB
}

func NewRSVPStore(db *sql.DB) *RSVPStore {
	return &RSVPStore{db: db}
}

// ReminderSettings loads the event's reminder configuration. Events without
// a row fall back to the default (everything on, 3h feedback delay).
func (s *RSVPStore) ReminderSettings(ctx context.Context, eventID string) (reminders.ReminderConfig, error) {
	const q = `
		SELECT reminder_7d, reminder_24h, reminder_2h, starting_nudge, feedback, feedback_delay_hours
		FROM event_reminder_settings
		WHERE event_id = $1`

	var cfg reminders.ReminderConfig
	err := s.db.QueryRowContext(ctx, q, eventID).Scan(
		&cfg.Reminder7d, &cfg.Reminder24h, &cfg.Reminder2h,
		&cfg.StartingNudge, &cfg.Feedback, &cfg.FeedbackDelayHours,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return reminders.DefaultConfig(), nil
	}
	if err != nil {
		return reminders.ReminderConfig{}, fmt.Errorf("load reminder settings for event %s: %w", eventID, err)
	}
	return cfg, nil
}

// AttendanceConfirmed reports whether the user has confirmed attendance for
// the event since the nudge was scheduled. A missing RSVP counts as not
// confirmed.
func (s *RSVPStore) AttendanceConfirmed(ctx context.Context, userID, eventID string) (bool, error) {
	const q = `
		SELECT confirmed_at IS NOT NULL
		FROM event_rsvps
		WHERE user_id = $1 AND event_id = $2`

	var confirmed bool
	err := s.db.QueryRowContext(ctx, q, userID, eventID).Scan(&confirmed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check attendance confirmation for user %s event %s: %w", userID, eventID, err)
	}
	return confirmed, nil
}
