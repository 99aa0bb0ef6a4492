// internal/workers/notifications/dispatch-due/handler.go
package dispatchdue

import (
	"context"
	"fmt"
	"time"

	"reminder-workers/internal/common/delivery"
	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/common/metrics"
	"reminder-workers/internal/models"
)

// Define interfaces for mocking
type NotificationStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	MarkCancelled(ctx context.Context, id, message string) error
}

type RSVPStore interface {
	AttendanceConfirmed(ctx context.Context, userID, eventID string) (bool, error)
}

// Auditor mirrors terminal rows to the search index. Implementations are
// best-effort; a nil Auditor disables auditing.
type Auditor interface {
	IndexTerminal(ctx context.Context, n *models.ScheduledNotification, status models.Status, errorMessage string)
}

// Handler runs the once-a-minute due-notification sweep. The pending ->
// processing compare-and-swap in Claim is the only guard against a slow
// tick overlapping the next one; a lost claim is silently skipped.
type Handler struct {
	config  *Config
	store   NotificationStore
	rsvps   RSVPStore
	gateway delivery.Gateway
	audit   Auditor
	logger  logger.Logger
	now     func() time.Time
}

func NewHandler(config *Config, store NotificationStore, rsvps RSVPStore, gateway delivery.Gateway, audit Auditor, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		store:   store,
		rsvps:   rsvps,
		gateway: gateway,
		audit:   audit,
		logger:  log.WithFields(map[string]interface{}{"component": "dispatch-due"}),
		now:     time.Now,
	}
}

// Run executes one tick. It returns an error only for invocation-level
// failures (the due query itself); per-row errors become terminal row
// statuses and a count in the result.
func (h *Handler) Run(ctx context.Context) (*TickResult, error) {
	started := h.now()
	now := started.UTC()

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	due, err := h.store.ListDue(ctx, now, h.config.BatchSize)
	if err != nil {
		return nil, stderrors.NewQueryError(err.Error())
	}

	result := &TickResult{Due: len(due)}
	metrics.DispatcherBatchSize.Set(float64(len(due)))

	for i := range due {
		h.processRow(ctx, &due[i], now, result)
	}

	metrics.DispatcherTickDuration.Observe(h.now().Sub(started).Seconds())
	if result.Due > 0 {
		h.logger.Info("dispatch tick complete", map[string]interface{}{
			"due":       result.Due,
			"sent":      result.Sent,
			"failed":    result.Failed,
			"cancelled": result.Cancelled,
			"skipped":   result.Skipped,
		})
	}
	return result, nil
}

// processRow drives one notification to a terminal state. Panics and
// errors are contained here: one bad row must never hold the other 49
// hostage.
func (h *Handler) processRow(ctx context.Context, n *models.ScheduledNotification, now time.Time, result *TickResult) {
	defer func() {
		if r := recover(); r != nil {
			h.terminate(ctx, n, models.StatusFailed, fmt.Sprintf("panic during delivery: %v", r))
			result.Failed++
		}
	}()

	claimed, err := h.store.Claim(ctx, n.ID)
	if err != nil {
		h.logger.WithError(err).Error("claim failed", map[string]interface{}{"notificationId": n.ID})
		result.Failed++
		return
	}
	if !claimed {
		// Another tick owns this row; the CAS guarantees at most one winner.
		result.Skipped++
		return
	}

	payload, err := n.DecodedPayload()
	if err != nil {
		h.terminate(ctx, n, models.StatusFailed, err.Error())
		result.Failed++
		return
	}

	// Don't nag an attendee who confirmed after this nudge was scheduled.
	// The check runs at delivery time because confirmation can land any
	// time between scheduling and firing.
	if nudge, ok := payload.(models.StartingNudgePayload); ok {
		confirmed, err := h.rsvps.AttendanceConfirmed(ctx, n.UserID, nudge.EventID)
		if err != nil {
			h.terminate(ctx, n, models.StatusFailed, err.Error())
			result.Failed++
			return
		}
		if confirmed {
			h.terminate(ctx, n, models.StatusCancelled, confirmedSuppressionMessage)
			result.Cancelled++
			return
		}
	}

	res, err := h.gateway.Notify(ctx, n.UserID, payload)
	switch {
	case err != nil:
		h.terminate(ctx, n, models.StatusFailed, err.Error())
		result.Failed++
	case !res.Success:
		h.terminate(ctx, n, models.StatusFailed, res.Reason)
		result.Failed++
	default:
		if err := h.store.MarkSent(ctx, n.ID, now); err != nil {
			h.logger.WithError(err).Error("mark sent failed", map[string]interface{}{"notificationId": n.ID})
		}
		metrics.DispatcherProcessed.WithLabelValues(string(models.StatusSent)).Inc()
		if h.audit != nil {
			h.audit.IndexTerminal(ctx, n, models.StatusSent, "")
		}
		result.Sent++
	}
}

// terminate records a terminal failed/cancelled outcome. Errors here are
// logged only; there is nothing better to do with a row we cannot update.
func (h *Handler) terminate(ctx context.Context, n *models.ScheduledNotification, status models.Status, message string) {
	var err error
	switch status {
	case models.StatusCancelled:
		err = h.store.MarkCancelled(ctx, n.ID, message)
	default:
		err = h.store.MarkFailed(ctx, n.ID, message)
	}
	if err != nil {
		h.logger.WithError(err).Error("terminal status update failed", map[string]interface{}{
			"notificationId": n.ID,
			"status":         string(status),
		})
	}
	metrics.DispatcherProcessed.WithLabelValues(string(status)).Inc()
	if h.audit != nil {
		h.audit.IndexTerminal(ctx, n, status, message)
	}
}
