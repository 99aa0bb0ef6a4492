// internal/workers/rsvp/cancel-reminders/handler.go
package cancelreminders

import (
	"context"
	"encoding/json"

	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/common/metrics"
	"reminder-workers/internal/models"
)

// Define interfaces for mocking
type NotificationStore interface {
	CancelPending(ctx context.Context, userID, referenceID string, refTypes []models.ReferenceType, reason string) (int64, error)
}

// Handler sweeps every pending reminder for a cancelled RSVP. Best-effort
// and race-tolerant: rows a dispatcher tick already claimed stay claimed
// and will still deliver.
type Handler struct {
	config        *Config
	notifications NotificationStore
	logger        logger.Logger
}

func NewHandler(config *Config, notifications NotificationStore, log logger.Logger) *Handler {
	return &Handler{
		config:        config,
		notifications: notifications,
		logger:        log.WithFields(map[string]interface{}{"event": models.EventRSVPCancelled}),
	}
}

func (h *Handler) EventName() string { return models.EventRSVPCancelled }

func (h *Handler) Handle(ctx context.Context, data json.RawMessage) error {
	var event models.RSVPCancelledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return stderrors.NewEventParseError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &event)
	if err != nil {
		return err
	}

	h.logger.Info("pending reminders cancelled", map[string]interface{}{
		"userId":    event.UserID,
		"eventId":   event.EventID,
		"cancelled": output.Cancelled,
	})
	return nil
}

func (h *Handler) Execute(ctx context.Context, event *models.RSVPCancelledEvent) (*Output, error) {
	cancelled, err := h.notifications.CancelPending(ctx, event.UserID, event.EventID, models.RSVPReferenceTypes, cancelReason)
	if err != nil {
		return nil, stderrors.NewCancellationError(err.Error())
	}
	if cancelled > 0 {
		metrics.NotificationsCancelled.WithLabelValues("rsvp_cancelled").Add(float64(cancelled))
	}
	return &Output{Cancelled: cancelled}, nil
}
