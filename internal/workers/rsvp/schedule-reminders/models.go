// internal/workers/rsvp/schedule-reminders/models.go
package schedulereminders

// Output summarizes one scheduling step for logging and metrics.
type Output struct {
	Cancelled int64 `json:"cancelled"`
	Scheduled int   `json:"scheduled"`
	Skipped   int   `json:"skipped"`
}

// Reason recorded on rows swept by the idempotency step.
const cancelReason = "superseded by newer RSVP"
