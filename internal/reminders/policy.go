// internal/reminders/policy.go
package reminders

import (
	"time"

	"reminder-workers/internal/models"
)

// ReminderConfig is the per-event reminder configuration. Events without a
// stored configuration get DefaultConfig.
type ReminderConfig struct {
	Reminder7d         bool
	Reminder24h        bool
	Reminder2h         bool
	StartingNudge      bool
	Feedback           bool
	FeedbackDelayHours int
}

// DefaultConfig enables every slot with a 3 hour feedback delay.
func DefaultConfig() ReminderConfig {
	return ReminderConfig{
		Reminder7d:         true,
		Reminder24h:        true,
		Reminder2h:         true,
		StartingNudge:      true,
		Feedback:           true,
		FeedbackDelayHours: 3,
	}
}

// Slot is one computed reminder: which kind fires, and when.
type Slot struct {
	Kind     models.Kind
	FiringAt time.Time
}

// Offsets for the cascade. The nudge fires shortly after the event starts;
// feedback fires after it ends.
const (
	offset7d    = 7 * 24 * time.Hour
	offset24h   = 24 * time.Hour
	offset2h    = 2 * time.Hour
	nudgeDelay  = 15 * time.Minute
	defaultSpan = 4 * time.Hour
)

// EffectiveEnd substitutes the default event span when no end time is
// known. Payloads and slot math must agree on this.
func EffectiveEnd(startsAt, endsAt time.Time) time.Time {
	if endsAt.IsZero() {
		return startsAt.Add(defaultSpan)
	}
	return endsAt
}

// ComputeTimes returns the enabled reminder slots whose firing time is
// strictly in the future relative to now. Past-due slots are omitted, never
// backfilled. Pure function of its inputs so tests need no clock mocking.
func ComputeTimes(startsAt, endsAt time.Time, cfg ReminderConfig, now time.Time) []Slot {
	endsAt = EffectiveEnd(startsAt, endsAt)

	candidates := []struct {
		kind    models.Kind
		enabled bool
		at      time.Time
	}{
		{models.KindConfirmAttendance7d, cfg.Reminder7d, startsAt.Add(-offset7d)},
		{models.KindConfirmAttendance24h, cfg.Reminder24h, startsAt.Add(-offset24h)},
		{models.KindFinalReminder2h, cfg.Reminder2h, startsAt.Add(-offset2h)},
		{models.KindEventStartingNudge, cfg.StartingNudge, startsAt.Add(nudgeDelay)},
		{models.KindFeedbackRequest, cfg.Feedback, endsAt.Add(time.Duration(cfg.FeedbackDelayHours) * time.Hour)},
	}

	var slots []Slot
	for _, c := range candidates {
		if !c.enabled || !c.at.After(now) {
			continue
		}
		slots = append(slots, Slot{Kind: c.kind, FiringAt: c.at})
	}
	return slots
}

// InterestedTime computes the single interested-tier slot: the 24h
// event_reminder. Returns the zero time when the slot is already past.
func InterestedTime(startsAt, now time.Time) time.Time {
	at := startsAt.Add(-offset24h)
	if !at.After(now) {
		return time.Time{}
	}
	return at
}
