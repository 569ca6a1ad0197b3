package events

import (
	"testing"
	"time"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub(10)

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(DeliveryReceived, DeliveryEvent{DeliveryID: "dlv-1"})

	select {
	case ev := <-ch:
		if ev.Type != DeliveryReceived {
			t.Errorf("event type = %q, want %q", ev.Type, DeliveryReceived)
		}
		if ev.ID != 1 {
			t.Errorf("event id = %d, want 1", ev.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHubRingOverwritesOldest(t *testing.T) {
	hub := NewHub(3)

	for i := 0; i < 5; i++ {
		hub.Publish(DeliveryCompleted, nil)
	}

	snap := hub.SnapshotSince(0)
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d, want 3", len(snap))
	}
	if snap[0].ID != 3 || snap[2].ID != 5 {
		t.Errorf("snapshot ids = [%d..%d], want [3..5]", snap[0].ID, snap[2].ID)
	}
}

func TestHubSnapshotSince(t *testing.T) {
	hub := NewHub(10)

	for i := 0; i < 4; i++ {
		hub.Publish(DeliveryCompleted, nil)
	}

	snap := hub.SnapshotSince(2)
	if len(snap) != 2 {
		t.Fatalf("snapshot len = %d, want 2", len(snap))
	}
	if snap[0].ID != 3 {
		t.Errorf("first replayed id = %d, want 3", snap[0].ID)
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(10)

	// Subscriber that never reads; buffer is 128.
	_, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(DeliveryCompleted, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
