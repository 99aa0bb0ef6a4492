// internal/common/audit/indexer.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"reminder-workers/internal/common/logger"
	"reminder-workers/internal/models"
)

// Indexer mirrors terminal notification rows into elasticsearch for ops
// search. Strictly best-effort: every error is logged and swallowed, and a
// nil Indexer is a no-op, so indexing can never affect the notification
// state machine.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "audit-indexer"}),
	}
}

type auditDoc struct {
	NotificationID string    `json:"notificationId"`
	UserID         string    `json:"userId"`
	Type           string    `json:"type"`
	ReferenceType  string    `json:"referenceType"`
	ReferenceID    string    `json:"referenceId"`
	Status         string    `json:"status"`
	ScheduledFor   time.Time `json:"scheduledFor"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	IndexedAt      time.Time `json:"indexedAt"`
}

// IndexTerminal records the row's terminal outcome.
func (i *Indexer) IndexTerminal(ctx context.Context, n *models.ScheduledNotification, status models.Status, errorMessage string) {
	if i == nil || i.client == nil {
		return
	}

	doc := auditDoc{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           string(n.Type),
		ReferenceType:  string(n.ReferenceType),
		ReferenceID:    n.ReferenceID,
		Status:         string(status),
		ScheduledFor:   n.ScheduledFor,
		ErrorMessage:   errorMessage,
		IndexedAt:      time.Now().UTC(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		i.logger.WithError(err).Warn("audit doc marshal failed", nil)
		return
	}

	req := esapi.IndexRequest{
		Index:      fmt.Sprintf("%s-%s", i.index, doc.IndexedAt.Format("2006.01")),
		DocumentID: n.ID,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, i.client)
	if err != nil {
		i.logger.WithError(err).Warn("audit index request failed", nil)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		i.logger.Warn("audit index rejected", map[string]interface{}{
			"status":         res.Status(),
			"notificationId": n.ID,
		})
	}
}
