// internal/workers/notifications/dispatch-due/models.go
package dispatchdue

// TickResult aggregates one sweep for logging and metrics. A tick never
// fails as a whole because of a single row; per-row outcomes land here.
type TickResult struct {
	Due       int `json:"due"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Skipped   int `json:"skipped"`
}

const confirmedSuppressionMessage = "attendance already confirmed, nudge suppressed"
