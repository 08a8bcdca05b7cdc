package l402

import (
	"fmt"
	"testing"
	"time"
)

func TestPendingTable_AddAndSweep(t *testing.T) {
	now := time.Unix(1700000000, 0)
	table := newPendingTable(0, func() time.Time { return now })

	table.add("mac1", pendingObligation{Invoice: "inv1", Amount: 100, CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	table.add("mac2", pendingObligation{Invoice: "inv2", Amount: 100, CreatedAt: now, ExpiresAt: now.Add(-time.Second)})

	if table.len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", table.len())
	}

	if evicted := table.sweep(); evicted != 1 {
		t.Errorf("Expected sweep to evict 1 entry, got %d", evicted)
	}
	if table.len() != 1 {
		t.Errorf("Expected 1 entry after sweep, got %d", table.len())
	}
}

func TestPendingTable_OpportunisticSweepAtSoftBound(t *testing.T) {
	now := time.Unix(1700000000, 0)
	current := now
	table := newPendingTable(5, func() time.Time { return current })

	// Fill past the soft bound with already-expired entries.
	for i := 0; i < 5; i++ {
		table.add(fmt.Sprintf("mac%d", i), pendingObligation{
			Invoice:   fmt.Sprintf("inv%d", i),
			CreatedAt: now,
			ExpiresAt: now.Add(time.Minute),
		})
	}

	current = now.Add(2 * time.Minute)
	table.add("fresh", pendingObligation{
		Invoice:   "fresh-inv",
		CreatedAt: current,
		ExpiresAt: current.Add(time.Minute),
	})

	// Crossing the bound swept the expired entries before inserting.
	if table.len() != 1 {
		t.Errorf("Expected opportunistic sweep to leave 1 entry, got %d", table.len())
	}
}
