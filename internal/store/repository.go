package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shpluspower/backend/internal/models"
)

// Repository provides typed access to users and the activity log over a
// Store, plus the locking the engines need. The store has no transactions,
// so every read-modify-write of a user aggregate must run inside
// LockUsers, and anything touching the whole user set (signup uniqueness
// checks, sync merges) inside LockAll.
type Repository struct {
	store Store

	// tableMu is held shared by per-user critical sections and
	// exclusively by whole-set operations.
	tableMu sync.RWMutex
	mapMu   sync.Mutex
	userMus map[uuid.UUID]*sync.Mutex

	logMu sync.Mutex
}

// NewRepository creates a repository over the given store
func NewRepository(s Store) *Repository {
	return &Repository{
		store:   s,
		userMus: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Store exposes the underlying key-value store
func (r *Repository) Store() Store {
	return r.store
}

func (r *Repository) userMu(id uuid.UUID) *sync.Mutex {
	r.mapMu.Lock()
	defer r.mapMu.Unlock()

	mu, ok := r.userMus[id]
	if !ok {
		mu = &sync.Mutex{}
		r.userMus[id] = mu
	}
	return mu
}

// LockUsers locks the given user aggregates for a read-modify-write
// cycle and returns the unlock function. IDs are locked in sorted order
// so overlapping multi-user operations cannot deadlock.
func (r *Repository) LockUsers(ids ...uuid.UUID) func() {
	r.tableMu.RLock()

	sorted := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	for _, id := range sorted {
		r.userMu(id).Lock()
	}

	return func() {
		for i := len(sorted) - 1; i >= 0; i-- {
			r.userMu(sorted[i]).Unlock()
		}
		r.tableMu.RUnlock()
	}
}

// LockAll locks the entire user set exclusively
func (r *Repository) LockAll() func() {
	r.tableMu.Lock()
	return r.tableMu.Unlock
}

func userKey(id uuid.UUID) string {
	return UserKeyPrefix + id.String()
}

// GetUser loads a user aggregate by id
func (r *Repository) GetUser(id uuid.UUID) (*models.User, error) {
	raw, ok, err := r.store.Get(userKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &user, nil
}

// SaveUser persists a user aggregate as one record
func (r *Repository) SaveUser(user *models.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user %s: %w", user.ID, err)
	}
	return r.store.Set(userKey(user.ID), raw)
}

// Users loads every user aggregate
func (r *Repository) Users() ([]models.User, error) {
	keys, err := r.store.Keys(UserKeyPrefix)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := r.store.Get(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var user models.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		users = append(users, user)
	}
	return users, nil
}

// ReplaceUsers writes the given user set back to per-user records.
// Users are never hard-deleted, so no stale-key cleanup is needed.
func (r *Repository) ReplaceUsers(users []models.User) error {
	for i := range users {
		if err := r.SaveUser(&users[i]); err != nil {
			return err
		}
	}
	return nil
}

// FindUserByEmail returns the user with the given email, or ErrNotFound
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	users, err := r.Users()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// FindUserByReferralCode resolves a referral code, or ErrNotFound
func (r *Repository) FindUserByReferralCode(code string) (*models.User, error) {
	if code == "" {
		return nil, ErrNotFound
	}
	users, err := r.Users()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ReferralCode == code {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// ActivityLog loads the global activity log
func (r *Repository) ActivityLog() ([]models.ActivityEntry, error) {
	raw, ok, err := r.store.Get(ActivityLogKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.ActivityEntry{}, nil
	}

	var entries []models.ActivityEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode activity log: %w", err)
	}
	return entries, nil
}

// SaveActivityLog persists the full activity log as one record
func (r *Repository) SaveActivityLog(entries []models.ActivityEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode activity log: %w", err)
	}
	return r.store.Set(ActivityLogKey, raw)
}

// AppendActivity appends one entry to the global log
func (r *Repository) AppendActivity(entry models.ActivityEntry) error {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	entries, err := r.ActivityLog()
	if err != nil {
		return err
	}
	return r.SaveActivityLog(append(entries, entry))
}

// UpdateActivity applies fn to the entry with the given id under the log
// lock and persists the result. fn reports whether the entry is eligible
// for the update; an ineligible or missing entry leaves the log untouched.
// The bool return reports whether the update was applied, so a
// status-gated fn makes this a compare-and-set: of several concurrent
// callers exactly one observes true.
func (r *Repository) UpdateActivity(id uuid.UUID, fn func(*models.ActivityEntry) bool) (bool, error) {
	r.logMu.Lock()
	defer r.logMu.Unlock()

	entries, err := r.ActivityLog()
	if err != nil {
		return false, err
	}
	for i := range entries {
		if entries[i].ID == id {
			if !fn(&entries[i]) {
				return false, nil
			}
			return true, r.SaveActivityLog(entries)
		}
	}
	return false, nil
}

// DeviceID returns this node's device identifier, creating it on first use
func (r *Repository) DeviceID() (string, error) {
	raw, ok, err := r.store.Get(DeviceIDKey)
	if err != nil {
		return "", err
	}
	if ok {
		return string(raw), nil
	}

	id := uuid.NewString()
	if err := r.store.Set(DeviceIDKey, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}
