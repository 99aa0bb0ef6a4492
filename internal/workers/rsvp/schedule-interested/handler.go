// internal/workers/rsvp/schedule-interested/handler.go
package scheduleinterested

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

// Handler schedules the lighter interested-tier cascade: a single 24h
// event_reminder. The sweep targets both reference types so going->
// interested demotions supersede the full cascade cleanly.
type Handler struct {
	config        *Config
	notifications NotificationStore
	logger        logger.Logger
	now           func() time.Time
}

func NewHandler(config *Config, notifications NotificationStore, log logger.Logger) *Handler {
	return &Handler{
		config:        config,
		notifications: notifications,
		logger:        log.WithFields(map[string]interface{}{"event": models.EventRSVPInterested}),
		now:           time.Now,
	}
}

func (h *Handler) EventName() string { return models.EventRSVPInterested }

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

	h.logger.Info("interested reminder scheduled", map[string]interface{}{
		"userId":    event.UserID,
		"eventId":   event.EventID,
		"cancelled": output.Cancelled,
		"scheduled": output.Scheduled,
	})
	return nil
}

func (h *Handler) Execute(ctx context.Context, event *models.RSVPEvent) (*Output, error) {
	now := h.now().UTC()

	cancelled, err := h.notifications.CancelPending(ctx, event.UserID, event.EventID, models.RSVPReferenceTypes, cancelReason)
	if err != nil {
		return nil, stderrors.NewCancellationError(err.Error())
	}
	if cancelled > 0 {
		metrics.NotificationsCancelled.WithLabelValues("superseded").Add(float64(cancelled))
	}

	firingAt := reminders.InterestedTime(event.StartsAt, now)
	if firingAt.IsZero() {
		// The 24h mark is already past: skip, never backfill.
		return &Output{Cancelled: cancelled, Scheduled: 0}, nil
	}

	payload := models.EventReminderPayload{
		Type:          models.KindEventReminder,
		EventID:       event.EventID,
		EventSlug:     event.EventSlug,
		EventTitle:    event.EventTitle,
		Locale:        event.Locale,
		StartsAt:      event.StartsAt,
		LocationName:  event.LocationName,
		GoogleMapsURL: event.GoogleMapsURL,
	}
	raw, err := models.EncodePayload(payload)
	if err != nil {
		return nil, stderrors.NewScheduleError(err.Error())
	}

	n := &models.ScheduledNotification{
		UserID:        event.UserID,
		Type:          models.KindEventReminder,
		ScheduledFor:  firingAt,
		Payload:       raw,
		ReferenceType: models.ReferenceEventInterested,
		ReferenceID:   event.EventID,
	}
	if err := h.notifications.Insert(ctx, n); err != nil {
		return nil, stderrors.NewScheduleError(err.Error())
	}
	metrics.NotificationsScheduled.WithLabelValues(string(models.KindEventReminder)).Inc()

	return &Output{Cancelled: cancelled, Scheduled: 1}, nil
}
