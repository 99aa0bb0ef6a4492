// internal/models/notification.go
package models

import (
	"encoding/json"
	"time"
)

// Status is the scheduled-notification state machine:
//
//	pending --(claimed)--> processing --(gateway ok)---> sent
//	pending --(claimed)--> processing --(gateway err)--> failed
//	pending --(cancellation sweep)-----------------------> cancelled
//	processing --(nudge for confirmed attendee)----------> cancelled
//
// sent, failed and cancelled are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ReferenceType identifies the subject a notification is about, used to
// find and cancel related rows.
type ReferenceType string

const (
	ReferenceEventRSVP       ReferenceType = "event_rsvp"
	ReferenceEventInterested ReferenceType = "event_interested"
	ReferenceComment         ReferenceType = "comment"
)

// RSVPReferenceTypes covers both attendance tiers; the cascade's
// cancel-before-insert sweep always targets both so interested<->going
// switches supersede cleanly.
var RSVPReferenceTypes = []ReferenceType{ReferenceEventRSVP, ReferenceEventInterested}

// ScheduledNotification is a row in the durable notification queue.
// Rows are never deleted; terminal rows are retained for audit history.
type ScheduledNotification struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Type          Kind            `json:"type"`
	ScheduledFor  time.Time       `json:"scheduledFor"`
	Payload       json.RawMessage `json:"payload"`
	ReferenceType ReferenceType   `json:"referenceType"`
	ReferenceID   string          `json:"referenceId"`
	Status        Status          `json:"status"`
	SentAt        *time.Time      `json:"sentAt,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DecodedPayload unpacks the stored payload using the envelope type.
func (n *ScheduledNotification) DecodedPayload() (Payload, error) {
	return DecodePayload(n.Type, n.Payload)
}
