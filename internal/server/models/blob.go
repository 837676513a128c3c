package models

import "time"

// Blob is the metadata of stored bytes. The bytes themselves live in the
// storage backend under Fingerprint.
type Blob struct {
	Fingerprint string
	Size        int64
	CreatedAt   time.Time
}
