package models

import "time"

// Snapshot is the shared state a SyncCoordinator reconciles against:
// the full user set, the global activity log, and a monotonically
// increasing version counter bumped on every accepted merge.
type Snapshot struct {
	Users       []User          `json:"users"`
	ActivityLog []ActivityEntry `json:"activity_log"`
	LastUpdate  time.Time       `json:"last_update"`
	Version     int64           `json:"version"`
}
