package models

import "time"

// Notification is the persisted in-app half of a push notification. Delivery
// to devices is best-effort and external; the row is the durable record.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Metadata  []byte    `db:"metadata" json:"metadata,omitempty"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
