package l402

import (
	"sync"
	"time"
)

const defaultMaxPending = 4096

// pendingObligation is server-side bookkeeping for an issued challenge.
type pendingObligation struct {
	Invoice   string
	Amount    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// pendingTable tracks unsettled obligations keyed by payment hash. It is
// never consulted for admission; admission is decided purely by
// re-verifying the presented proof. The table exists for cleanup and
// inspection, bounded opportunistically rather than precisely.
type pendingTable struct {
	mu        sync.Mutex
	entries   map[string]pendingObligation
	softLimit int
	now       func() time.Time
}

func newPendingTable(softLimit int, clock func() time.Time) *pendingTable {
	if softLimit <= 0 {
		softLimit = defaultMaxPending
	}
	if clock == nil {
		clock = time.Now
	}
	return &pendingTable{
		entries:   make(map[string]pendingObligation),
		softLimit: softLimit,
		now:       clock,
	}
}

// add records an obligation, sweeping expired entries first when the
// table has crossed its soft size bound.
func (t *pendingTable) add(macaroon string, ob pendingObligation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) >= t.softLimit {
		t.sweepLocked()
	}
	t.entries[macaroon] = ob
}

func (t *pendingTable) sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked()
}

func (t *pendingTable) sweepLocked() int {
	now := t.now()
	evicted := 0
	for macaroon, ob := range t.entries {
		if !now.Before(ob.ExpiresAt) {
			delete(t.entries, macaroon)
			evicted++
		}
	}
	return evicted
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
