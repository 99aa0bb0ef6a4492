// internal/common/delivery/gateway.go
package delivery

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/messaging"

	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/models"
	"reminder-workers/internal/store"
)

// Result is the gateway's delivery contract. Success false with a nil
// error means the notification had nowhere to go; Reason says why.
type Result struct {
	Success   bool
	Channel   string
	MessageID string
	Reason    string
}

// Gateway is the only delivery dependency the workers and dispatcher see.
type Gateway interface {
	Notify(ctx context.Context, userID string, payload models.Payload) (*Result, error)
}

// Channel interfaces, defined here for mocking.
type PushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type ContactResolver interface {
	Lookup(ctx context.Context, userID string) (*store.Contact, error)
}

// Config enables channels independently; a nil sender behaves as disabled.
type Config struct {
	PushEnabled  bool
	EmailEnabled bool
	SMSEnabled   bool
}

// MultiChannelGateway delivers a payload over the first channel that
// reaches the user: push, then email. The 2h final reminder additionally
// goes out as SMS when the user has a phone number.
type MultiChannelGateway struct {
	config   Config
	contacts ContactResolver
	push     PushSender
	email    EmailSender
	sms      SMSSender
	logger   logger.Logger
}

func NewGateway(cfg Config, contacts ContactResolver, push PushSender, email EmailSender, sms SMSSender, log logger.Logger) *MultiChannelGateway {
	return &MultiChannelGateway{
		config:   cfg,
		contacts: contacts,
		push:     push,
		email:    email,
		sms:      sms,
		logger:   log.WithFields(map[string]interface{}{"component": "delivery-gateway"}),
	}
}

func (g *MultiChannelGateway) Notify(ctx context.Context, userID string, payload models.Payload) (*Result, error) {
	msg, err := Render(payload)
	if err != nil {
		return nil, err
	}

	contact, err := g.contacts.Lookup(ctx, userID)
	if errors.Is(err, store.ErrContactNotFound) {
		return &Result{Success: false, Reason: "recipient has no contact profile"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve recipient %s: %w", userID, err)
	}

	var lastErr error

	if g.config.PushEnabled && g.push != nil {
		for _, token := range contact.DeviceTokens {
			id, err := g.push.Send(ctx, &messaging.Message{
				Token: token,
				Notification: &messaging.Notification{
					Title: msg.Title,
					Body:  msg.Body,
				},
				Data: msg.Data,
			})
			if err != nil {
				lastErr = err
				g.logger.Warn("push delivery failed, trying next token", map[string]interface{}{
					"userId": userID,
					"error":  err.Error(),
				})
				continue
			}
			g.sendUrgentSMS(ctx, contact, payload, msg)
			return &Result{Success: true, Channel: "push", MessageID: id}, nil
		}
	}

	if g.config.EmailEnabled && g.email != nil && contact.Email != "" {
		id, err := g.email.Send(ctx, contact.Email, msg.Title, msg.Body)
		if err != nil {
			lastErr = err
			g.logger.Error("email delivery failed", map[string]interface{}{
				"userId": userID,
				"error":  err.Error(),
			})
		} else {
			g.sendUrgentSMS(ctx, contact, payload, msg)
			return &Result{Success: true, Channel: "email", MessageID: id}, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all delivery channels failed for user %s: %w", userID, lastErr)
	}
	return &Result{Success: false, Reason: "no reachable delivery channel"}, nil
}

// sendUrgentSMS adds an SMS leg for the 2h final reminder. Best effort: a
// failed SMS never fails a delivery that already succeeded elsewhere.
func (g *MultiChannelGateway) sendUrgentSMS(ctx context.Context, contact *store.Contact, payload models.Payload, msg *Message) {
	if !g.config.SMSEnabled || g.sms == nil || contact.Phone == "" {
		return
	}
	if payload.Kind() != models.KindFinalReminder2h {
		return
	}
	if _, err := g.sms.SendSMS(ctx, contact.Phone, msg.Body); err != nil {
		g.logger.Warn("urgent SMS failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
