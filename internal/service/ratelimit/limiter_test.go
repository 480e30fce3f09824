package ratelimit

import (
	"testing"
	"time"
)

func TestAllowConsumesAndRefills(t *testing.T) {
	l := New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("ip", 3, 1) {
			t.Fatalf("request %d should pass", i)
		}
	}
	if l.Allow("ip", 3, 1) {
		t.Fatalf("bucket should be empty")
	}
	if !l.Allow("other", 3, 1) {
		t.Fatalf("keys must not share buckets")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.Allow("ip", 3, 1) {
		t.Fatalf("expected refill after 1.5s")
	}
	if l.Allow("ip", 3, 1) {
		t.Fatalf("only one token should have been refilled")
	}
}
