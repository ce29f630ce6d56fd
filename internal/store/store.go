package store

import "errors"

// ErrNotFound is returned by Repository lookups that resolve nothing
var ErrNotFound = errors.New("record not found")

// Keys under which state is persisted. One record per user, one global
// activity log, one device identifier, one shared sync snapshot. Each
// logical update is confined to a single key; the store guarantees no
// atomicity across keys.
const (
	UserKeyPrefix  = "user:"
	ActivityLogKey = "activity:log"
	DeviceIDKey    = "device:id"
	MasterKey      = "sync:master"
)

// Store is the durable key-value persistence abstraction
type Store interface {
	// Get returns the value for key and whether it exists
	Get(key string) ([]byte, bool, error)
	// Set writes value under key, replacing any previous value
	Set(key string, value []byte) error
	// Remove deletes key; removing a missing key is not an error
	Remove(key string) error
	// Keys returns all keys with the given prefix
	Keys(prefix string) ([]string, error)
}
