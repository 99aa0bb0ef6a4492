// internal/workers/rsvp/schedule-reminders/handler.go
package schedulereminders

import (
	"context"
	"encoding/json"
	"time"

	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/common/metrics"
	"reminder-workers/internal/models"
	"reminder-workers/internal/reminders"
)

// Define interfaces for mocking
type NotificationStore interface {
	Insert(ctx context.Context, n *models.ScheduledNotification) error
	CancelPending(ctx context.Context, userID, referenceID string, refTypes []models.ReferenceType, reason string) (int64, error)
}

type SettingsStore interface {
	ReminderSettings(ctx context.Context, eventID string) (reminders.ReminderConfig, error)
}

// Handler schedules the full reminder cascade when a user RSVPs "going".
// The step is idempotent: pending rows for the same (user, event) are
// cancelled before the new set is inserted, so an at-least-once bus can
// re-deliver the event without producing duplicate active reminders.
type Handler struct {
	config        *Config
	notifications NotificationStore
	settings      SettingsStore
	logger        logger.Logger
	now           func() time.Time
}

func NewHandler(config *Config, notifications NotificationStore, settings SettingsStore, log logger.Logger) *Handler {
	return &Handler{
		config:        config,
		notifications: notifications,
		settings:      settings,
		logger:        log.WithFields(map[string]interface{}{"event": models.EventRSVPCreated}),
		now:           time.Now,
	}
}

func (h *Handler) EventName() string { return models.EventRSVPCreated }

func (h *Handler) Handle(ctx context.Context, data json.RawMessage) error {
	var event models.RSVPEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return stderrors.NewEventParseError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &event)
	if err != nil {
		return err
	}

	h.logger.Info("reminder cascade scheduled", map[string]interface{}{
		"userId":    event.UserID,
		"eventId":   event.EventID,
		"cancelled": output.Cancelled,
		"scheduled": output.Scheduled,
		"skipped":   output.Skipped,
	})
	return nil
}

func (h *Handler) Execute(ctx context.Context, event *models.RSVPEvent) (*Output, error) {
	now := h.now().UTC()

	cfg, err := h.settings.ReminderSettings(ctx, event.EventID)
	if err != nil {
		return nil, stderrors.NewScheduleError(err.Error())
	}

	// Idempotency step: sweep both reference types so re-fired events and
	// interested->going switches never leave duplicate active rows.
	cancelled, err := h.notifications.CancelPending(ctx, event.UserID, event.EventID, models.RSVPReferenceTypes, cancelReason)
	if err != nil {
		return nil, stderrors.NewCancellationError(err.Error())
	}
	if cancelled > 0 {
		metrics.NotificationsCancelled.WithLabelValues("superseded").Add(float64(cancelled))
	}

	slots := reminders.ComputeTimes(event.StartsAt, event.EndsAt, cfg, now)
	enabled := enabledSlotCount(cfg)

	for _, slot := range slots {
		payload, err := buildPayload(slot.Kind, event)
		if err != nil {
			return nil, stderrors.NewScheduleError(err.Error())
		}
		raw, err := models.EncodePayload(payload)
		if err != nil {
			return nil, stderrors.NewScheduleError(err.Error())
		}

		n := &models.ScheduledNotification{
			UserID:        event.UserID,
			Type:          slot.Kind,
			ScheduledFor:  slot.FiringAt,
			Payload:       raw,
			ReferenceType: models.ReferenceEventRSVP,
			ReferenceID:   event.EventID,
		}
		if err := h.notifications.Insert(ctx, n); err != nil {
			return nil, stderrors.NewScheduleError(err.Error())
		}
		metrics.NotificationsScheduled.WithLabelValues(string(slot.Kind)).Inc()
	}

	return &Output{
		Cancelled: cancelled,
		Scheduled: len(slots),
		Skipped:   enabled - len(slots),
	}, nil
}

// buildPayload captures all rendering context now; delivery never reads
// the event again.
func buildPayload(kind models.Kind, event *models.RSVPEvent) (models.Payload, error) {
	switch kind {
	case models.KindConfirmAttendance7d, models.KindConfirmAttendance24h, models.KindFinalReminder2h:
		return models.EventReminderPayload{
			Type:          kind,
			EventID:       event.EventID,
			EventSlug:     event.EventSlug,
			EventTitle:    event.EventTitle,
			Locale:        event.Locale,
			StartsAt:      event.StartsAt,
			LocationName:  event.LocationName,
			GoogleMapsURL: event.GoogleMapsURL,
		}, nil
	case models.KindEventStartingNudge:
		return models.StartingNudgePayload{
			Type:       kind,
			EventID:    event.EventID,
			EventSlug:  event.EventSlug,
			EventTitle: event.EventTitle,
			Locale:     event.Locale,
			StartsAt:   event.StartsAt,
		}, nil
	case models.KindFeedbackRequest:
		return models.FeedbackRequestPayload{
			Type:       kind,
			EventID:    event.EventID,
			EventSlug:  event.EventSlug,
			EventTitle: event.EventTitle,
			Locale:     event.Locale,
			EndedAt:    reminders.EffectiveEnd(event.StartsAt, event.EndsAt),
		}, nil
	default:
		return nil, stderrors.NewScheduleError("unexpected reminder slot kind " + string(kind))
	}
}

func enabledSlotCount(cfg reminders.ReminderConfig) int {
	count := 0
	for _, on := range []bool{cfg.Reminder7d, cfg.Reminder24h, cfg.Reminder2h, cfg.StartingNudge, cfg.Feedback} {
		if on {
			count++
		}
	}
	return count
}
