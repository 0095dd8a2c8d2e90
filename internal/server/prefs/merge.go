// Package prefs reconciles a client's preference set with the stored one.
package prefs

import (
	"maps"

	"github.com/dmitrijs2005/taskmate/internal/server/models"
)

// Merge combines local and cloud preferences key by key. On a shared key the
// cloud value wins, including when it is null or a nested object (nested
// values are replaced wholesale, never merged field by field). Keys present
// on only one side are kept. Neither input is modified.
//
// Task and conversation uploads use the opposite rule (the upload replaces
// server state); the two must stay separate.
func Merge(local, cloud models.Preferences) models.Preferences {
	merged := make(models.Preferences, len(local)+len(cloud))
	maps.Copy(merged, local)
	maps.Copy(merged, cloud)
	return merged
}
