package models

import "time"

// File describes metadata for an uploaded binary object. The bytes
// themselves live in object storage under StorageKey.
type File struct {
	// ID is the server-assigned identifier.
	ID string
	// UserID is the owner of the file. Only the owner may read,
	// reference, or delete it.
	UserID string
	// OriginalName is the client-supplied file name, kept for downloads.
	OriginalName string
	// StorageKey is the object-storage key of the blob. Generated at
	// upload time, never derived from OriginalName.
	StorageKey string
	// ContentType is the MIME type reported at upload time.
	ContentType string

	CreatedAt time.Time
}
