package keystone

import "testing"

func TestTTLWheelAddAndTick(t *testing.T) {
	w := newTTLWheel(60, 1000)
	w.add("a", 1003)

	// tick() returns the entries scheduled for the tick it is currently
	// *at*; "a" was scheduled for absolute tick 1003, which is the 4th
	// call starting from currentTick=1000 (calls see currentTick
	// 1000, 1001, 1002, 1003 in turn).
	for i := 0; i < 3; i++ {
		if due := w.tick(); len(due) != 0 {
			t.Fatalf("tick %d fired early: %v", i, due)
		}
	}
	due := w.tick()
	if len(due) != 1 || due[0] != "a" {
		t.Fatalf("tick() = %v, want [a]", due)
	}
}

func TestTTLWheelRemoveCancelsSchedule(t *testing.T) {
	w := newTTLWheel(60, 1000)
	w.add("a", 1002)
	w.remove("a")

	for i := 0; i < 5; i++ {
		if due := w.tick(); len(due) != 0 {
			t.Fatalf("removed key still fired: %v", due)
		}
	}
}

func TestTTLWheelReAddRetargets(t *testing.T) {
	w := newTTLWheel(60, 1000)
	w.add("a", 1002)
	w.add("a", 1005) // overwritten with a later expiry

	due := w.tick()
	due = append(due, w.tick()...)
	if len(due) != 0 {
		t.Fatalf("key fired under its old schedule: %v", due)
	}
	for i := 0; i < 3; i++ {
		w.tick()
	}
	due = w.tick()
	if len(due) != 1 || due[0] != "a" {
		t.Fatalf("expected a to fire at its new schedule, got %v", due)
	}
}

func TestTTLWheelOverflowBeyondHorizon(t *testing.T) {
	w := newTTLWheel(10, 1000)
	target := int64(1000 + 100)
	w.add("far", target) // far beyond the 10-slot horizon

	var due []string
	for i := 0; i < 200; i++ {
		if got := w.tick(); len(got) != 0 {
			due = got
			break
		}
	}
	if len(due) != 1 || due[0] != "far" {
		t.Fatalf("tick() eventually returned %v, want [far] once the overflow entry enters the horizon", due)
	}
}

func TestTTLWheelLen(t *testing.T) {
	w := newTTLWheel(60, 1000)
	w.add("a", 1010)
	w.add("b", 1020)
	if w.len() != 2 {
		t.Fatalf("len() = %d, want 2", w.len())
	}
	w.remove("a")
	if w.len() != 1 {
		t.Fatalf("len() after remove = %d, want 1", w.len())
	}
}
