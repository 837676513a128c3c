package models

import "time"

// Session is a server-side record of an issued token. ID is the token's jti.
type Session struct {
	ID        string
	Address   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
}

func (s *Session) Live(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
