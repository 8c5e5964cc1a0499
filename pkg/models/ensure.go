package models

import "errors"

// ErrNotFound is returned by point lookups that match no row
var ErrNotFound = errors.New("not found")

// EnsureStatus describes how an ensure-exists call resolved an entity
type EnsureStatus string

const (
	// EnsureCreated means the upsert inserted a new row
	EnsureCreated EnsureStatus = "created"
	// EnsureUpdated means the upsert overwrote the row sharing the natural key
	EnsureUpdated EnsureStatus = "updated"
	// EnsureUnchanged means the row already held the same data and was not written
	EnsureUnchanged EnsureStatus = "unchanged"
	// EnsureFoundExisting means the upsert failed but a lookup found the row
	EnsureFoundExisting EnsureStatus = "found_existing"
	// EnsureFailed means neither the upsert nor the lookup produced an identifier
	EnsureFailed EnsureStatus = "failed"
)

// EnsureResult is the outcome of an ensure-exists call at the persistence boundary
type EnsureResult struct {
	ID     int64
	Status EnsureStatus
	// Err is the upsert error, set whenever the upsert itself did not succeed
	Err error
}

// OK reports whether the entity has a usable surrogate identifier
func (r EnsureResult) OK() bool {
	return r.Status != EnsureFailed && r.ID != 0
}
