// internal/workers/rsvp/cancel-reminders/models.go
package cancelreminders

// Output reports the cancelled-row count for observability.
type Output struct {
	Cancelled int64 `json:"cancelled"`
}

const cancelReason = "rsvp cancelled"
