// Package models defines server-side data models persisted in the database.
package models

import "time"

// Challenge is the nonce issued to an address. There is at most one per
// address; issuing a new one replaces it.
type Challenge struct {
	Address   string
	Nonce     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// Live reports whether the challenge can still be answered at now.
func (c *Challenge) Live(now time.Time) bool {
	return !c.Consumed && now.Before(c.ExpiresAt)
}
