package clock

import (
	"testing"
	"time"
)

func TestSystemAdvances(t *testing.T) {
	c := System()
	before := time.Now().Add(-time.Second)
	now := c.Now()
	if now.Before(before) {
		t.Fatalf("System().Now() = %v, earlier than %v", now, before)
	}
}

func TestFixedIsStable(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fixed(at)
	if got := c.Now(); !got.Equal(at) {
		t.Fatalf("Fixed clock drifted: got %v, want %v", got, at)
	}
	if got := c.Now(); !got.Equal(at) {
		t.Fatalf("Fixed clock drifted on second read: got %v", got)
	}
}
