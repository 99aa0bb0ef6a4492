// internal/workers/comments/notify/models.go
package notify

// Output summarizes the routing decision for one comment.created event.
// Notified holds userId -> delivered kind; a comment fans out to at most
// two people (parent author and content owner) and each person appears
// at most once.
type Output struct {
	Notified map[string]string `json:"notified"`
	Muted    int               `json:"muted"`
	Failed   int               `json:"failed"`
	Skipped  bool              `json:"skipped"`
	Reason   string            `json:"reason,omitempty"`
}
