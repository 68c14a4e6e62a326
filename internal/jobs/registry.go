package jobs

import (
	"sync"

	"github.com/google/uuid"
)

// registry tracks scan jobs with a live worker goroutine. Insert-if-absent
// under one lock is the whole dedup story: a job id can only ever be
// dispatched once, no matter how many callers race on StartJobAsync.
type registry struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newRegistry() *registry {
	return &registry{active: make(map[uuid.UUID]struct{})}
}

// tryAcquire reserves the id. It returns false if a worker already owns it.
func (r *registry) tryAcquire(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[id]; ok {
		return false
	}
	r.active[id] = struct{}{}
	return true
}

func (r *registry) release(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, id)
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
