package operations

import (
	"sync"
)

// DefaultMaxTracked bounds a Registry built with a non-positive limit
const DefaultMaxTracked = 100

// Registry keeps recent operations by ID so they can be polled
type Registry struct {
	mu    sync.Mutex
	max   int
	order []string
	ops   map[string]*Operation
}

func NewRegistry(maxTracked int) *Registry {
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	return &Registry{max: maxTracked, ops: make(map[string]*Operation)}
}

// Add tracks op. When the registry is full the oldest finished operation is dropped;
// running operations are never evicted, so the limit can be exceeded while they run.
func (r *Registry) Add(op *Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[op.ID]; ok {
		return
	}
	for len(r.order) >= r.max {
		if !r.evictOldestFinished() {
			break
		}
	}
	r.ops[op.ID] = op
	r.order = append(r.order, op.ID)
}

// evictOldestFinished expects r.mu to be held
func (r *Registry) evictOldestFinished() bool {
	for i, id := range r.order {
		if r.ops[id].State().Finished() {
			delete(r.ops, id)
			r.order = append(r.order[:i], r.order[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Registry) Get(id string) (*Operation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	op, ok := r.ops[id]
	return op, ok
}

// List returns the tracked operations, oldest first
func (r *Registry) List() []*Operation {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*Operation, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.ops[id])
	}
	return list
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}
