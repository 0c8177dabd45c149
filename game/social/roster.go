// Package social owns guild and party membership: authoritative mutations
// against the ledger store, best-effort update-log signals for other shards,
// and the shard-local roster caches those signals refresh.
package social

import "sync"

// Member is one entry in a cached group roster.
type Member struct {
	CharID int64
	Rank   int
}

// Roster is a shard-local cache of group composition, one per group domain
// (guild, party). It is only ever written by the owning shard's mutations
// and its sync poller; readers get a snapshot copy.
type Roster struct {
	mu     sync.RWMutex
	groups map[int64][]Member
}

// NewRoster creates an empty Roster.
func NewRoster() *Roster {
	return &Roster{groups: make(map[int64][]Member)}
}

// Set replaces the cached composition for groupID.
func (r *Roster) Set(groupID int64, members []Member) {
	cp := make([]Member, len(members))
	copy(cp, members)
	r.mu.Lock()
	r.groups[groupID] = cp
	r.mu.Unlock()
}

// Get returns a snapshot of the cached composition for groupID.
func (r *Roster) Get(groupID int64) ([]Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members, ok := r.groups[groupID]
	if !ok {
		return nil, false
	}
	cp := make([]Member, len(members))
	copy(cp, members)
	return cp, true
}

// Evict drops the cached composition for groupID (group dissolved).
func (r *Roster) Evict(groupID int64) {
	r.mu.Lock()
	delete(r.groups, groupID)
	r.mu.Unlock()
}

// Len returns the number of cached groups.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
