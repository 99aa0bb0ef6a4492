// internal/workers/rsvp/schedule-interested/models.go
package scheduleinterested

type Output struct {
	Cancelled int64 `json:"cancelled"`
	Scheduled int   `json:"scheduled"`
}

const cancelReason = "superseded by newer RSVP"
