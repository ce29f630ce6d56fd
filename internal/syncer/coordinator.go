package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/metrics"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/sink"
	"github.com/shpluspower/backend/internal/store"
)

// Coordinator reconciles the local working copy of {users, activity log}
// against the shared master snapshot written by any number of
// unsynchronized writers. There are no locks or transactions across
// writers; the merge heuristics in the Reconciler are the only conflict
// resolution. The local store remains the durable source of truth; the
// remote sink is best-effort mirroring only.
type Coordinator struct {
	store    store.Store
	repo     *store.Repository
	rec      Reconciler
	notifier *sink.Notifier
	clock    clock.Clock
	deviceID string

	// OnUserChanged fires with the merged copy of any user whose record
	// was replaced by a merge, so active sessions can refresh their view.
	OnUserChanged func(models.User)

	mu   sync.Mutex
	kick chan struct{}
}

// NewCoordinator creates a sync coordinator
func NewCoordinator(s store.Store, repo *store.Repository, rec Reconciler, notifier *sink.Notifier, clk clock.Clock, deviceID string) *Coordinator {
	return &Coordinator{
		store:    s,
		repo:     repo,
		rec:      rec,
		notifier: notifier,
		clock:    clk,
		deviceID: deviceID,
		kick:     make(chan struct{}, 1),
	}
}

// Kick requests an eager reconciliation without blocking the caller.
// Handlers invoke it after every state-changing operation to shrink the
// staleness window for the admin view and cross-device balances.
func (c *Coordinator) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Start runs the eager-sync loop until ctx is cancelled. The periodic
// cadence is a scheduler job; this loop only serves Kick requests.
func (c *Coordinator) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.kick:
				if err := c.Sync(ctx); err != nil {
					log.Printf("eager sync failed: %v", err)
				}
			}
		}
	}()
}

// Sync performs one reconciliation pass: load local state and the master
// snapshot, merge, publish the merged snapshot if it changed, write the
// merged state back locally, and mirror it to the remote sink.
func (c *Coordinator) Sync(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	metrics.SyncRuns.Inc()

	unlock := c.repo.LockAll()
	defer unlock()

	localUsers, err := c.repo.Users()
	if err != nil {
		return err
	}
	localLog, err := c.repo.ActivityLog()
	if err != nil {
		return err
	}
	local := models.Snapshot{Users: localUsers, ActivityLog: localLog}

	master, exists, err := c.loadMaster()
	if err != nil {
		return err
	}

	now := c.clock.Now()
	if !exists {
		// First writer seeds the master snapshot from local state.
		master = models.Snapshot{
			Users:       localUsers,
			ActivityLog: localLog,
			LastUpdate:  now,
			Version:     1,
		}
		if err := c.saveMaster(master); err != nil {
			return err
		}
		c.publish(master)
		return nil
	}

	merged := c.rec.Merge(master, local)

	if !snapshotContentEqual(merged, master) {
		merged.Version = master.Version + 1
		merged.LastUpdate = now
		if err := c.saveMaster(merged); err != nil {
			return err
		}
		metrics.SyncMergesApplied.Inc()
	} else {
		merged = master
	}

	// The merged state replaces the local working copy wholesale.
	if err := c.repo.ReplaceUsers(merged.Users); err != nil {
		return err
	}
	if err := c.repo.SaveActivityLog(merged.ActivityLog); err != nil {
		return err
	}

	c.fireUserChanges(localUsers, merged.Users)
	c.publish(merged)
	return nil
}

func (c *Coordinator) loadMaster() (models.Snapshot, bool, error) {
	raw, ok, err := c.store.Get(store.MasterKey)
	if err != nil || !ok {
		return models.Snapshot{}, false, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("failed to decode master snapshot: %w", err)
	}
	return snap, true, nil
}

func (c *Coordinator) saveMaster(snap models.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode master snapshot: %w", err)
	}
	return c.store.Set(store.MasterKey, raw)
}

func (c *Coordinator) publish(snap models.Snapshot) {
	c.notifier.Notify(map[string]interface{}{
		"type":      "global_sync",
		"sync_data": snap,
		"timestamp": c.clock.Now(),
		"device_id": c.deviceID,
	})
}

func (c *Coordinator) fireUserChanges(before, after []models.User) {
	if c.OnUserChanged == nil {
		return
	}

	prev := make(map[uuid.UUID][]byte, len(before))
	for i := range before {
		raw, _ := json.Marshal(before[i])
		prev[before[i].ID] = raw
	}
	for i := range after {
		raw, _ := json.Marshal(after[i])
		if old, ok := prev[after[i].ID]; !ok || string(old) != string(raw) {
			c.OnUserChanged(after[i])
		}
	}
}

// snapshotContentEqual compares users and log by serialized form,
// ignoring the version counter and timestamp.
func snapshotContentEqual(a, b models.Snapshot) bool {
	au, _ := json.Marshal(a.Users)
	bu, _ := json.Marshal(b.Users)
	if string(au) != string(bu) {
		return false
	}
	al, _ := json.Marshal(a.ActivityLog)
	bl, _ := json.Marshal(b.ActivityLog)
	return string(al) == string(bl)
}
