package activity

import (
	"sort"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/clock"
	"github.com/shpluspower/backend/internal/identity"
	"github.com/shpluspower/backend/internal/models"
	"github.com/shpluspower/backend/internal/store"
)

// Log is the append-only global record of user actions consumed by the
// admin panel.
type Log struct {
	repo  *store.Repository
	ids   *identity.Generator
	clock clock.Clock
}

// NewLog creates the activity log service
func NewLog(repo *store.Repository, ids *identity.Generator, clk clock.Clock) *Log {
	return &Log{repo: repo, ids: ids, clock: clk}
}

// Record appends an entry for the given user action and returns it
func (l *Log) Record(userID uuid.UUID, action string, details models.ActivityDetails, status string) (models.ActivityEntry, error) {
	entry := models.ActivityEntry{
		ID:      l.ids.NewID(),
		UserID:  userID,
		Action:  action,
		Details: details,
		Date:    l.clock.Now(),
		Status:  status,
	}
	if err := l.repo.AppendActivity(entry); err != nil {
		return models.ActivityEntry{}, err
	}
	return entry, nil
}

// All returns the full log sorted by date, newest first
func (l *Log) All() ([]models.ActivityEntry, error) {
	entries, err := l.repo.ActivityLog()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})
	return entries, nil
}

// Find returns the entry with the given id, or nil
func (l *Log) Find(id uuid.UUID) (*models.ActivityEntry, error) {
	entries, err := l.repo.ActivityLog()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// Approve flips a pending entry to approved, stamping who and when.
// The transition only happens while the entry is still pending; the
// bool return reports whether this call won it. Concurrent approvals
// of one entry therefore resolve to exactly one winner.
func (l *Log) Approve(id uuid.UUID, by string) (bool, error) {
	now := l.clock.Now()
	return l.repo.UpdateActivity(id, func(e *models.ActivityEntry) bool {
		if e.Status != models.StatusPending {
			return false
		}
		e.Status = models.StatusApproved
		e.ApprovedBy = by
		e.ApprovedAt = &now
		return true
	})
}

// Decline flips a pending entry to declined, stamping who and when.
// Same pending-only gate as Approve.
func (l *Log) Decline(id uuid.UUID, by string) (bool, error) {
	now := l.clock.Now()
	return l.repo.UpdateActivity(id, func(e *models.ActivityEntry) bool {
		if e.Status != models.StatusPending {
			return false
		}
		e.Status = models.StatusDeclined
		e.DeclinedBy = by
		e.DeclinedAt = &now
		return true
	})
}
