// internal/workers/comments/notify/handler.go
package notify

import (
	"context"
	"encoding/json"

	"reminder-workers/internal/common/delivery"
	stderrors "reminder-workers/internal/common/errors"
	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/common/metrics"
	"reminder-workers/internal/models"
)

// Define interfaces for mocking
type MuteChecker interface {
	IsThreadMuted(ctx context.Context, userID, threadID string) (bool, error)
}

// Handler routes a comment.created event to zero, one, or two recipients.
// Pure routing: no store row is written, delivery happens synchronously
// through the gateway. The routed set guarantees at most one notification
// per person per comment even when the parent author is also the owner.
type Handler struct {
	config  *Config
	mutes   MuteChecker
	gateway delivery.Gateway
	logger  logger.Logger
}

func NewHandler(config *Config, mutes MuteChecker, gateway delivery.Gateway, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		mutes:   mutes,
		gateway: gateway,
		logger:  log.WithFields(map[string]interface{}{"event": models.EventCommentCreated}),
	}
}

func (h *Handler) EventName() string { return models.EventCommentCreated }

func (h *Handler) Handle(ctx context.Context, data json.RawMessage) error {
	var event models.CommentCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return stderrors.NewEventParseError(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &event)
	if err != nil {
		return err
	}

	if output.Skipped {
		h.logger.Warn("comment event skipped", map[string]interface{}{
			"commentId": event.CommentID,
			"reason":    output.Reason,
		})
		return nil
	}
	h.logger.Info("comment routed", map[string]interface{}{
		"commentId": event.CommentID,
		"notified":  len(output.Notified),
		"muted":     output.Muted,
		"failed":    output.Failed,
	})
	return nil
}

func (h *Handler) Execute(ctx context.Context, event *models.CommentCreatedEvent) (*Output, error) {
	if event.CommenterID == "" || event.ContentID == "" || event.ThreadID == "" {
		return &Output{Skipped: true, Reason: "comment event missing commenter, content or thread reference"}, nil
	}

	output := &Output{Notified: make(map[string]string)}
	isReply := event.ParentCommentID != ""

	// routed tracks everyone a rule already claimed, successful or not, so
	// the owner rule cannot fire a second time for the same person.
	routed := map[string]bool{event.CommenterID: true}

	if isReply {
		switch {
		case event.ParentAuthorID == "":
			// Parent comment was deleted between write and notify. The
			// reply rule has nobody to address; owner routing still runs.
			h.logger.Warn("reply without parent author", map[string]interface{}{"commentId": event.CommentID})
		case routed[event.ParentAuthorID]:
			// Self-reply; never notify the commenter.
		default:
			routed[event.ParentAuthorID] = true
			if err := h.route(ctx, event, event.ParentAuthorID, models.KindReplyToComment, output); err != nil {
				return nil, err
			}
		}
	}

	owner := event.ContentOwnerID
	if owner != "" && !routed[owner] {
		kind := models.KindThreadActivity
		if !isReply {
			switch event.ContentType {
			case models.ContentEvent:
				kind = models.KindCommentOnEvent
			case models.ContentMoment:
				kind = models.KindCommentOnMoment
			default:
				return &Output{Skipped: true, Reason: "unknown content type " + string(event.ContentType)}, nil
			}
		}
		routed[owner] = true
		if err := h.route(ctx, event, owner, kind, output); err != nil {
			return nil, err
		}
	}

	return output, nil
}

// route checks the recipient's mute list and, when clear, delivers one
// comment notification. Gateway failures are counted, not propagated: the
// bus would otherwise requeue the event and re-notify recipients that
// already succeeded.
func (h *Handler) route(ctx context.Context, event *models.CommentCreatedEvent, userID string, kind models.Kind, output *Output) error {
	muted, err := h.mutes.IsThreadMuted(ctx, userID, event.ThreadID)
	if err != nil {
		return stderrors.NewQueryError(err.Error())
	}
	if muted {
		output.Muted++
		return nil
	}

	payload := models.CommentPayload{
		Type:          kind,
		ContentID:     event.ContentID,
		ContentSlug:   event.ContentSlug,
		ContentTitle:  event.ContentTitle,
		CommentID:     event.CommentID,
		ThreadID:      event.ThreadID,
		CommenterName: event.CommenterName,
		Preview:       event.Preview,
		Locale:        event.Locale,
	}

	res, err := h.gateway.Notify(ctx, userID, payload)
	switch {
	case err != nil:
		output.Failed++
		h.logger.WithError(err).Error("comment notification failed", map[string]interface{}{
			"userId": userID,
			"kind":   string(kind),
		})
	case !res.Success:
		output.Failed++
		h.logger.Warn("comment notification not delivered", map[string]interface{}{
			"userId": userID,
			"kind":   string(kind),
			"reason": res.Reason,
		})
	default:
		output.Notified[userID] = string(kind)
		metrics.CommentNotificationsRouted.WithLabelValues(string(kind)).Inc()
	}
	return nil
}
