package reminder

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// keyedLocks serializes mutations per reminder id. Different ids proceed fully
// in parallel; there is no global lock. Acquisition is bounded so a stuck
// holder surfaces as ErrConflict instead of a hung request.
type keyedLocks struct {
	mu    sync.Mutex
	gates map[uuid.UUID]chan struct{}
	refs  map[uuid.UUID]int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		gates: make(map[uuid.UUID]chan struct{}),
		refs:  make(map[uuid.UUID]int),
	}
}

func (k *keyedLocks) acquire(id uuid.UUID, timeout time.Duration) error {
	k.mu.Lock()
	gate, ok := k.gates[id]
	if !ok {
		gate = make(chan struct{}, 1)
		k.gates[id] = gate
	}
	k.refs[id]++
	k.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case gate <- struct{}{}:
		return nil
	case <-timer.C:
		k.mu.Lock()
		k.drop(id)
		k.mu.Unlock()
		return ErrConflict
	}
}

func (k *keyedLocks) release(id uuid.UUID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if gate, ok := k.gates[id]; ok {
		<-gate
		k.drop(id)
	}
}

// drop decrements the refcount and frees the gate when nobody waits on it.
// Caller holds k.mu.
func (k *keyedLocks) drop(id uuid.UUID) {
	k.refs[id]--
	if k.refs[id] <= 0 {
		delete(k.refs, id)
		delete(k.gates, id)
	}
}
