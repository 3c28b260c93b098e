package model

import "time"

// Session holds the upstream credentials of a logged-in operator.
type Session struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index;size:64" json:"userId"`
	TTNToken    string    `gorm:"-" json:"-"`
	SealedToken []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `gorm:"index" json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at t.
func (s Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}
