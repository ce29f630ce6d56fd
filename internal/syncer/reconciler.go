package syncer

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/metrics"
	"github.com/shpluspower/backend/internal/models"
)

// Reconciler merges a local snapshot into the shared master snapshot.
// It is an interface so the merge strategy can be replaced (field-level,
// CRDT) without touching the engines or the coordinator.
type Reconciler interface {
	Merge(master, local models.Snapshot) models.Snapshot
}

// LWWReconciler is the documented whole-record last-writer-wins merge:
//
//   - users present only locally are added; users present on both sides
//     keep whichever copy has the more recent last activity (max of last
//     login and newest transaction date). On a tie the master copy wins.
//     This is NOT a field-level merge: concurrent edits to the same user
//     on two devices lose one edit entirely.
//   - the activity log is the union by entry id, sorted newest first.
//     Entries are effectively append-only so the union is safe; only the
//     status field can conflict, and it is last-writer-wins too.
type LWWReconciler struct{}

func (LWWReconciler) Merge(master, local models.Snapshot) models.Snapshot {
	return models.Snapshot{
		Users:       mergeUsers(master.Users, local.Users),
		ActivityLog: mergeActivityLog(master.ActivityLog, local.ActivityLog),
		LastUpdate:  master.LastUpdate,
		Version:     master.Version,
	}
}

func mergeUsers(master, local []models.User) []models.User {
	merged := make([]models.User, len(master))
	copy(merged, master)

	index := make(map[uuid.UUID]int, len(merged))
	for i := range merged {
		index[merged[i].ID] = i
	}

	for i := range local {
		localUser := local[i]
		at, exists := index[localUser.ID]
		if !exists {
			index[localUser.ID] = len(merged)
			merged = append(merged, localUser)
			continue
		}

		existing := merged[at]
		if localUser.LastActivity().After(existing.LastActivity()) {
			if !sameRecord(existing, localUser) {
				metrics.SyncRecordsDiscarded.Inc()
			}
			merged[at] = localUser
		} else if !sameRecord(existing, localUser) {
			metrics.SyncRecordsDiscarded.Inc()
		}
	}
	return merged
}

func mergeActivityLog(master, local []models.ActivityEntry) []models.ActivityEntry {
	merged := make([]models.ActivityEntry, len(master))
	copy(merged, master)

	seen := make(map[uuid.UUID]bool, len(merged))
	for _, e := range merged {
		seen[e.ID] = true
	}
	for _, e := range local {
		if !seen[e.ID] {
			seen[e.ID] = true
			merged = append(merged, e)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})
	return merged
}

// sameRecord compares serialized forms, the same way change detection
// works everywhere else in the sync path.
func sameRecord(a, b models.User) bool {
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	return string(ab) == string(bb)
}
