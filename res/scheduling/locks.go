package scheduling

import "sync"

// batchLocks hands out one mutex per batch ID so approvals of the same
// batch serialize while different batches proceed in parallel. Locks are
// never released from the map; the population is bounded by the number of
// batches an admin touches in one process lifetime.
type batchLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newBatchLocks() *batchLocks {
	return &batchLocks{locks: make(map[string]*sync.Mutex)}
}

func (bl *batchLocks) forBatch(id string) *sync.Mutex {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	lock, ok := bl.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		bl.locks[id] = lock
	}
	return lock
}
