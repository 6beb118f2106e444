package model

import (
	"time"
)

// DeviceToken represents a user's registered device for push notifications.
// Supports multiple devices per user.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	Platform  string    `db:"platform" json:"platform"` // web, ios, android or expo
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserEndpointSet is the deduplicated set of endpoints a user can be notified on.
type UserEndpointSet struct {
	OwnerUserID string
	Endpoints   []string
}

// Empty reports whether there is nowhere to deliver to.
func (s UserEndpointSet) Empty() bool {
	return len(s.Endpoints) == 0
}
