package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New[string]()

	c.Set("key", "value", time.Minute)
	got, ok := c.Get("key")
	if !ok || got != "value" {
		t.Errorf("Get = %q, %v; want value, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get returned ok for a missing key")
	}
}

func TestExpiry(t *testing.T) {
	c := New[int]()

	c.Set("short", 42, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("Get returned an expired entry")
	}
}

func TestZeroTTLNotStored(t *testing.T) {
	c := New[int]()

	c.Set("off", 1, 0)
	if _, ok := c.Get("off"); ok {
		t.Error("Set with zero TTL stored an entry")
	}
}

func TestCleanup(t *testing.T) {
	c := New[int]()

	c.Set("stale", 1, 5*time.Millisecond)
	c.Set("fresh", 2, time.Minute)
	time.Sleep(20 * time.Millisecond)
	c.cleanup()

	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, exists := c.items["stale"]; exists {
		t.Error("cleanup kept an expired entry")
	}
	if _, exists := c.items["fresh"]; !exists {
		t.Error("cleanup dropped a live entry")
	}
}
