// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the local account an external identity resolves to.
type User struct {
	ID         int64
	Email      string
	Name       string
	AvatarURL  string
	ExternalID string
	CreatedAt  time.Time
	LastLogin  time.Time
}

// Identity is a verified external identity assertion.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
}
