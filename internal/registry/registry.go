// Package registry deduplicates user identities across crawl workers.
package registry

import (
	"sync"

	"github.com/NelliaS/junior.guru/internal/club"
)

// Registry is a first-writer-wins map of user id to User. Resolve is the
// only shared-mutation point of a crawl and is guarded by a mutex, so the
// factory runs at most once per id no matter how many workers race on it.
type Registry struct {
	mu    sync.Mutex
	users map[string]*club.User
}

// New constructs an empty registry. Callers use one registry per crawl run.
func New() *Registry {
	return &Registry{users: make(map[string]*club.User)}
}

// Resolve returns the User for id, building and inserting one via factory
// when absent. It reports created=true only for the single winning caller.
func (r *Registry) Resolve(id string, factory func() *club.User) (*club.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		return user, false
	}
	user := factory()
	r.users[id] = user
	return user, true
}

// Len returns the number of distinct users resolved so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Snapshot copies the current id to User mapping.
func (r *Registry) Snapshot() map[string]*club.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make(map[string]*club.User, len(r.users))
	for id, user := range r.users {
		users[id] = user
	}
	return users
}
