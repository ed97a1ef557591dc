package ring

import (
	"testing"
	"testing/quick"
)

// TestScenarioS4 is the literal scenario from spec.md §8: capacity 3,
// inserts e1..e5, All() == [e3,e4,e5], ConsumeDropCount() == 2 then 0.
func TestScenarioS4(t *testing.T) {
	b := New[string](3)
	for _, e := range []string{"e1", "e2", "e3", "e4", "e5"} {
		b.Append(e)
	}

	got := b.All()
	want := []string{"e3", "e4", "e5"}
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All() = %v, want %v", got, want)
		}
	}

	if n := b.ConsumeDropCount(); n != 2 {
		t.Fatalf("first ConsumeDropCount() = %d, want 2", n)
	}
	if n := b.ConsumeDropCount(); n != 0 {
		t.Fatalf("second ConsumeDropCount() = %d, want 0", n)
	}
}

func TestZeroCapacity(t *testing.T) {
	b := New[int](0)
	_, evicted := b.Append(1)
	if evicted {
		t.Fatal("zero-capacity buffer should never report eviction")
	}
	if b.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", b.Len())
	}
	if len(b.All()) != 0 {
		t.Fatal("All() should be empty for zero-capacity buffer")
	}
}

func TestResetAndClearDrops(t *testing.T) {
	b := New[int](2)
	b.Append(1)
	b.Append(2)
	b.Append(3) // evicts 1, dropped=1

	b.ResetAndClearDrops()
	if b.Len() != 0 {
		t.Fatalf("Len() after reset = %d, want 0", b.Len())
	}
	if n := b.ConsumeDropCount(); n != 0 {
		t.Fatalf("ConsumeDropCount() after ResetAndClearDrops = %d, want 0", n)
	}
}

// TestPropertyCapacityBound mirrors the teacher's ring buffer property test:
// Len() never exceeds Cap() regardless of how many items are appended.
func TestPropertyCapacityBound(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		capacity := int(capacityOffset) + 1
		b := New[int](capacity)
		for _, item := range items {
			b.Append(item)
		}
		return b.Len() <= b.Cap()
	}

	cfg := &quick.Config{MaxCount: 1000}
	if err := quick.Check(f, cfg); err != nil {
		t.Error(err)
	}
}

// TestPropertyAllMatchesCount verifies All().length == count always, per
// spec.md §4.1's invariant.
func TestPropertyAllMatchesCount(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		capacity := int(capacityOffset) + 1
		b := New[int](capacity)
		for _, item := range items {
			b.Append(item)
		}
		return len(b.All()) == b.Len()
	}

	cfg := &quick.Config{MaxCount: 1000}
	if err := quick.Check(f, cfg); err != nil {
		t.Error(err)
	}
}

// TestPropertyWriteReadConsistency verifies All() returns the most recent
// min(N, capacity) items in insertion order.
func TestPropertyWriteReadConsistency(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		if len(items) == 0 {
			return true
		}
		capacity := int(capacityOffset) + 1
		b := New[int](capacity)
		for _, item := range items {
			b.Append(item)
		}

		all := b.All()
		expectedCount := len(items)
		if expectedCount > capacity {
			expectedCount = capacity
		}
		if len(all) != expectedCount {
			return false
		}
		startIdx := len(items) - expectedCount
		for i := 0; i < expectedCount; i++ {
			if all[i] != items[startIdx+i] {
				return false
			}
		}
		return true
	}

	cfg := &quick.Config{MaxCount: 1000}
	if err := quick.Check(f, cfg); err != nil {
		t.Error(err)
	}
}

// TestPropertyDropCountMatchesOverflow verifies the drop counter equals the
// number of items appended beyond capacity.
func TestPropertyDropCountMatchesOverflow(t *testing.T) {
	f := func(items []int, capacityOffset uint8) bool {
		capacity := int(capacityOffset) + 1
		b := New[int](capacity)
		for _, item := range items {
			b.Append(item)
		}
		want := len(items) - capacity
		if want < 0 {
			want = 0
		}
		return b.ConsumeDropCount() == want
	}

	cfg := &quick.Config{MaxCount: 1000}
	if err := quick.Check(f, cfg); err != nil {
		t.Error(err)
	}
}
