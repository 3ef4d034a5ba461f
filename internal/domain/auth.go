package domain

import "time"

// Session represents an authenticated browser or API session.
type Session struct {
	ID        string
	AccountID int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}
