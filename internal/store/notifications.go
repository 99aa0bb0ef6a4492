// internal/store/notifications.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"reminder-workers/internal/models"
)

// NotificationStore persists the scheduled-notification queue. Exclusivity
// between overlapping dispatcher ticks rests entirely on the conditional
// status update in Claim; there is no other locking.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// Insert persists a new pending row and fills in its generated ID.
func (s *NotificationStore) Insert(ctx context.Context, n *models.ScheduledNotification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = models.StatusPending
	}

	const q = `
		INSERT INTO scheduled_notifications
			(id, user_id, type, scheduled_for, payload, reference_type, reference_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := s.db.ExecContext(ctx, q,
		n.ID, n.UserID, string(n.Type), n.ScheduledFor, []byte(n.Payload),
		string(n.ReferenceType), n.ReferenceID, string(n.Status),
	)
	if err != nil {
		return fmt.Errorf("insert scheduled notification: %w", err)
	}
	return nil
}

// CancelPending moves every pending row for (user, reference) to cancelled
// and reports how many were swept. Rows already claimed by a dispatcher
// tick (processing) are left alone; that narrow race is accepted.
func (s *NotificationStore) CancelPending(ctx context.Context, userID, referenceID string, refTypes []models.ReferenceType, reason string) (int64, error) {
	types := make([]string, 0, len(refTypes))
	for _, rt := range refTypes {
		types = append(types, string(rt))
	}

	const q = `
		UPDATE scheduled_notifications
		SET status = 'cancelled', error_message = $4, updated_at = NOW()
		WHERE user_id = $1 AND reference_id = $2 AND reference_type = ANY($3) AND status = 'pending'`

	res, err := s.db.ExecContext(ctx, q, userID, referenceID, pq.Array(types), reason)
	if err != nil {
		return 0, fmt.Errorf("cancel pending notifications: %w", err)
	}
	return res.RowsAffected()
}

// ListDue returns up to limit pending rows whose scheduled_for has passed.
// Ordering between rows is not guaranteed and not required.
func (s *NotificationStore) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ScheduledNotification, error) {
	const q = `
		SELECT id, user_id, type, scheduled_for, payload, reference_type, reference_id, status
		FROM scheduled_notifications
		WHERE status = 'pending' AND scheduled_for <= $1
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due notifications: %w", err)
	}
	defer rows.Close()

	var due []models.ScheduledNotification
	for rows.Next() {
		var n models.ScheduledNotification
		var typ, refType, status string
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &typ, &n.ScheduledFor, &payload, &refType, &n.ReferenceID, &status); err != nil {
			return nil, fmt.Errorf("scan due notification: %w", err)
		}
		n.Type = models.Kind(typ)
		n.ReferenceType = models.ReferenceType(refType)
		n.Status = models.Status(status)
		n.Payload = payload
		due = append(due, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due notifications: %w", err)
	}
	return due, nil
}

// Claim performs the pending -> processing compare-and-swap. It returns
// true only when this caller won the row; a lost claim means another tick
// already owns it and the caller must not touch it again.
func (s *NotificationStore) Claim(ctx context.Context, id string) (bool, error) {
	const q = `
		UPDATE scheduled_notifications
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("claim notification %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim notification %s: %w", id, err)
	}
	return affected == 1, nil
}

// MarkSent records a successful delivery.
func (s *NotificationStore) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const q = `
		UPDATE scheduled_notifications
		SET status = 'sent', sent_at = $2, updated_at = NOW()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, sentAt); err != nil {
		return fmt.Errorf("mark notification %s sent: %w", id, err)
	}
	return nil
}

// MarkFailed records a terminal delivery failure. failed rows are not
// retried by the dispatcher.
func (s *NotificationStore) MarkFailed(ctx context.Context, id, message string) error {
	const q = `
		UPDATE scheduled_notifications
		SET status = 'failed', error_message = $2, updated_at = NOW()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, message); err != nil {
		return fmt.Errorf("mark notification %s failed: %w", id, err)
	}
	return nil
}

// MarkCancelled records a logical skip, e.g. a starting nudge for an
// attendee who has already confirmed. Distinct from failure.
func (s *NotificationStore) MarkCancelled(ctx context.Context, id, message string) error {
	const q = `
		UPDATE scheduled_notifications
		SET status = 'cancelled', error_message = $2, updated_at = NOW()
		WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, q, id, message); err != nil {
		return fmt.Errorf("mark notification %s cancelled: %w", id, err)
	}
	return nil
}
