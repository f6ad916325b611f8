package models

import "time"

// Session mirrors the sessions table. Tokens are stateless, so no flow
// writes sessions today; the table and collection exist for parity between
// backends.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Stats reports entity counts of the active backend.
type Stats struct {
	Users    int64 `json:"users"`
	Sessions int64 `json:"sessions"`
}
