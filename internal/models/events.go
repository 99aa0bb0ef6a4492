// internal/models/events.go
package models

import "time"

// Event names delivered by the upstream bus. Delivery is at-least-once;
// every handler must tolerate re-runs of the same event.
const (
	EventRSVPCreated    = "rsvp.created"
	EventRSVPCancelled  = "rsvp.cancelled"
	EventRSVPInterested = "rsvp.interested"
	EventCommentCreated = "comment.created"
)

// RSVPEvent is the data shape shared by rsvp.created and rsvp.interested.
// Everything a reminder payload renders is captured here, at event time.
type RSVPEvent struct {
	UserID        string    `json:"userId"`
	Locale        string    `json:"locale"`
	EventID       string    `json:"eventId"`
	EventTitle    string    `json:"eventTitle"`
	EventSlug     string    `json:"eventSlug"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt,omitempty"`
	LocationName  string    `json:"locationName,omitempty"`
	GoogleMapsURL string    `json:"googleMapsUrl,omitempty"`
}

// RSVPCancelledEvent carries just enough to find the rows to cancel.
type RSVPCancelledEvent struct {
	UserID  string `json:"userId"`
	EventID string `json:"eventId"`
}

// ContentType distinguishes what a comment thread hangs off.
type ContentType string

const (
	ContentEvent  ContentType = "event"
	ContentMoment ContentType = "moment"
)

// CommentCreatedEvent is the comment.created data shape. Parent fields are
// empty for top-level comments.
type CommentCreatedEvent struct {
	CommentID       string      `json:"commentId"`
	ContentType     ContentType `json:"contentType"`
	ContentID       string      `json:"contentId"`
	ContentSlug     string      `json:"contentSlug"`
	ContentTitle    string      `json:"contentTitle"`
	ContentOwnerID  string      `json:"contentOwnerId"`
	CommenterID     string      `json:"commenterId"`
	CommenterName   string      `json:"commenterName"`
	ParentCommentID string      `json:"parentCommentId,omitempty"`
	ParentAuthorID  string      `json:"parentAuthorId,omitempty"`
	ThreadID        string      `json:"threadId"`
	Preview         string      `json:"preview"`
	Locale          string      `json:"locale"`
}
