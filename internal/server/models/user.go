// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered account. PasswordHash holds a bcrypt hash; the
// plaintext password is never persisted or logged.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
