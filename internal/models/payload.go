// internal/models/payload.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies one notification variant. The set is closed: every kind
// maps to exactly one payload struct in DecodePayload.
type Kind string

const (
	KindConfirmAttendance7d  Kind = "confirm_attendance_7d"
	KindConfirmAttendance24h Kind = "confirm_attendance_24h"
	KindFinalReminder2h      Kind = "final_reminder_2h"
	KindEventStartingNudge   Kind = "event_starting_nudge"
	KindFeedbackRequest      Kind = "feedback_request"
	KindEventReminder        Kind = "event_reminder"
	KindCommentOnEvent       Kind = "comment_on_event"
	KindCommentOnMoment      Kind = "comment_on_moment"
	KindReplyToComment       Kind = "reply_to_comment"
	KindThreadActivity       Kind = "thread_activity"
)

// Payload is the tagged union of everything the gateway can deliver.
// Every variant carries the full rendering context captured at schedule
// time; delivery never goes back to the database for display data.
type Payload interface {
	Kind() Kind
	isPayload()
}

// EventReminderPayload backs the time-offset reminder slots that share the
// same rendering data: confirm_attendance_7d, confirm_attendance_24h,
// final_reminder_2h, and the interested-tier event_reminder.
type EventReminderPayload struct {
	Type          Kind      `json:"type"`
	EventID       string    `json:"eventId"`
	EventSlug     string    `json:"eventSlug"`
	EventTitle    string    `json:"eventTitle"`
	Locale        string    `json:"locale"`
	StartsAt      time.Time `json:"startsAt"`
	LocationName  string    `json:"locationName,omitempty"`
	GoogleMapsURL string    `json:"googleMapsUrl,omitempty"`
}

func (p EventReminderPayload) Kind() Kind { return p.Type }
func (EventReminderPayload) isPayload()   {}

// StartingNudgePayload is its own variant so the dispatcher's
// already-confirmed suppression check is a typed branch, not a string
// lookup. EventID is what the confirmed_at recheck keys on.
type StartingNudgePayload struct {
	Type       Kind      `json:"type"`
	EventID    string    `json:"eventId"`
	EventSlug  string    `json:"eventSlug"`
	EventTitle string    `json:"eventTitle"`
	Locale     string    `json:"locale"`
	StartsAt   time.Time `json:"startsAt"`
}

func (StartingNudgePayload) Kind() Kind { return KindEventStartingNudge }
func (StartingNudgePayload) isPayload() {}

// FeedbackRequestPayload fires after the event ends.
type FeedbackRequestPayload struct {
	Type       Kind      `json:"type"`
	EventID    string    `json:"eventId"`
	EventSlug  string    `json:"eventSlug"`
	EventTitle string    `json:"eventTitle"`
	Locale     string    `json:"locale"`
	EndedAt    time.Time `json:"endedAt"`
}

func (FeedbackRequestPayload) Kind() Kind { return KindFeedbackRequest }
func (FeedbackRequestPayload) isPayload() {}

// CommentPayload backs the four comment-routing outcomes: comment_on_event,
// comment_on_moment, reply_to_comment, thread_activity.
type CommentPayload struct {
	Type          Kind   `json:"type"`
	ContentID     string `json:"contentId"`
	ContentSlug   string `json:"contentSlug"`
	ContentTitle  string `json:"contentTitle"`
	CommentID     string `json:"commentId"`
	ThreadID      string `json:"threadId"`
	CommenterName string `json:"commenterName"`
	Preview       string `json:"preview"`
	Locale        string `json:"locale"`
}

func (p CommentPayload) Kind() Kind { return p.Type }
func (CommentPayload) isPayload()   {}

var eventReminderKinds = map[Kind]bool{
	KindConfirmAttendance7d:  true,
	KindConfirmAttendance24h: true,
	KindFinalReminder2h:      true,
	KindEventReminder:        true,
}

var commentKinds = map[Kind]bool{
	KindCommentOnEvent:  true,
	KindCommentOnMoment: true,
	KindReplyToComment:  true,
	KindThreadActivity:  true,
}

// EncodePayload serializes a payload for storage. The serialized form
// carries its own "type" tag, which must agree with Kind().
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("encode payload: nil payload")
	}
	switch v := p.(type) {
	case EventReminderPayload:
		if !eventReminderKinds[v.Type] {
			return nil, fmt.Errorf("encode payload: %q is not an event reminder kind", v.Type)
		}
		return json.Marshal(v)
	case CommentPayload:
		if !commentKinds[v.Type] {
			return nil, fmt.Errorf("encode payload: %q is not a comment kind", v.Type)
		}
		return json.Marshal(v)
	case StartingNudgePayload:
		v.Type = KindEventStartingNudge
		return json.Marshal(v)
	case FeedbackRequestPayload:
		v.Type = KindFeedbackRequest
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("encode payload: unknown variant %T", p)
	}
}

// DecodePayload deserializes a stored payload for the given envelope kind.
// The switch is exhaustive over Kind; an unknown kind is a data error.
func DecodePayload(kind Kind, raw []byte) (Payload, error) {
	switch kind {
	case KindConfirmAttendance7d, KindConfirmAttendance24h, KindFinalReminder2h, KindEventReminder:
		var p EventReminderPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		if p.Type != kind {
			return nil, fmt.Errorf("payload type %q does not match envelope type %q", p.Type, kind)
		}
		return p, nil
	case KindEventStartingNudge:
		var p StartingNudgePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		p.Type = KindEventStartingNudge
		return p, nil
	case KindFeedbackRequest:
		var p FeedbackRequestPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		p.Type = KindFeedbackRequest
		return p, nil
	case KindCommentOnEvent, KindCommentOnMoment, KindReplyToComment, KindThreadActivity:
		var p CommentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		if p.Type != kind {
			return nil, fmt.Errorf("payload type %q does not match envelope type %q", p.Type, kind)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown notification kind %q", kind)
	}
}
