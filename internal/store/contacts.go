// internal/store/contacts.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Contact is what the delivery gateway needs to reach a user. Any field may
// be empty when the user has not registered that channel.
type Contact struct {
	Email        string
	Phone        string
	DeviceTokens []string
}

// ContactStore resolves recipients for the delivery gateway.
type ContactStore struct {
	db *sql.DB
}

func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

// ErrContactNotFound marks a recipient with no profile row. Callers treat
// this as a skip, not a delivery failure.
var ErrContactNotFound = errors.New("contact not found")

// Lookup returns the user's reachable channels.
func (s *ContactStore) Lookup(ctx context.Context, userID string) (*Contact, error) {
	const q = `
		SELECT COALESCE(email, ''), COALESCE(phone, ''), COALESCE(device_tokens, '{}')
		FROM user_contacts
		WHERE user_id = $1`

	var c Contact
	err := s.db.QueryRowContext(ctx, q, userID).Scan(&c.Email, &c.Phone, pq.Array(&c.DeviceTokens))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup contact for user %s: %w", userID, err)
	}
	return &c, nil
}
