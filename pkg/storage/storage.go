// Package storage provides the durable key-value store behind the counting
// engine.
//
// The rest of the system treats persistence as an injected capability with
// plain get/set/remove/list semantics. Two implementations exist: a SQLite-backed store
// (WAL mode, retried writes) for the CLI, and a map-backed store for tests,
// which can also be told to fail so error paths are exercisable.
//
// Write failures (quota, I/O, serialization) surface as ErrStorageFailure
// so callers can distinguish "the disk said no" from their own logic errors
// and keep unsaved work recoverable.
package storage

import "errors"

// ErrStorageFailure wraps any write the backing store rejected. Data that
// was about to be persisted must remain recoverable by the caller.
var ErrStorageFailure = errors.New("storage failure")

// KV is the persistence adapter contract.
//
// Keys used by the engine: one for the live species tally snapshot, one for
// the in-progress session, one per finalized session, and one index key
// listing the finalized session keys.
type KV interface {
	// Get returns the value for key, with ok reporting whether it exists.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any previous value. A
	// rejected write returns an error matching ErrStorageFailure.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys returns all stored keys with the given prefix, sorted.
	Keys(prefix string) ([]string, error)
}
