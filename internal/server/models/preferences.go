package models

import "time"

// Preferences is the opaque per-user key/value set. Values are whatever the
// client stored: strings, numbers, booleans, nested objects or arrays.
type Preferences map[string]any

// PreferenceSet is the stored row for one user.
type PreferenceSet struct {
	UserID      int64
	Preferences Preferences
	UpdatedAt   time.Time
}
