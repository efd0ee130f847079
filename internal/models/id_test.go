package models

import (
	"testing"
	"time"
)

func TestIDSourceUniqueWithinMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	src := NewIDSourceAt(func() time.Time { return fixed })

	prev := src.Next()
	if prev != 1700000000000 {
		t.Fatalf("first id = %d, want the clock's millisecond value", prev)
	}

	// The clock never advances; ids must still be strictly increasing.
	for i := 0; i < 100; i++ {
		id := src.Next()
		if id <= prev {
			t.Fatalf("id %d issued after %d", id, prev)
		}
		prev = id
	}
}

func TestIDSourceFollowsClock(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	src := NewIDSourceAt(func() time.Time { return now })

	first := src.Next()
	now = now.Add(50 * time.Millisecond)
	second := src.Next()

	if second != first+50 {
		t.Errorf("id after clock advance = %d, want %d", second, first+50)
	}
}
