package models

import "time"

// Document is a user-authored record of a medical event, optionally linked
// to one uploaded File. FileID and UserID are immutable after creation.
type Document struct {
	ID     string
	UserID string
	// FileID references a File owned by the same user. Empty means no
	// file is attached.
	FileID string

	Title       string
	ServiceDate time.Time
	Provider    string
	DocType     string
	Medication  string

	CreatedAt time.Time
}
