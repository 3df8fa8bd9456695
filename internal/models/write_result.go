// Package models provides data model definitions for the WageBook core.
package models

// WriteResult is the tagged outcome of a mutation. A Confirmed result
// carries the remote id; a Pending result carries a temporary id assigned
// while offline, which is only valid until the operation syncs. Callers
// must not treat a pending id as a stable key.
type WriteResult struct {
	id      string
	pending bool
}

// Confirmed returns a WriteResult for a mutation applied remotely.
func Confirmed(id string) WriteResult {
	return WriteResult{id: id}
}

// Queued returns a WriteResult for a mutation recorded locally with a
// temporary id, awaiting sync.
func Queued(tempID string) WriteResult {
	return WriteResult{id: tempID, pending: true}
}

// ID returns the remote id for confirmed results and the temporary id for
// pending ones.
func (r WriteResult) ID() string {
	return r.id
}

// IsPending reports whether the mutation is still waiting to be synced.
func (r WriteResult) IsPending() bool {
	return r.pending
}
