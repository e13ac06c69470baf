package event

import (
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus[int]()
	recv := bus.Subscribe()

	bus.Publish(1)
	bus.Publish(2)
	bus.Publish(3)

	for want := 1; want <= 3; want++ {
		select {
		case got := <-recv.C():
			if got != want {
				t.Errorf("received %d, want %d", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", want)
		}
	}

	if got := recv.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}
}

func TestBus_IndependentReceivers(t *testing.T) {
	bus := NewBus[string]()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish("hello")

	for _, recv := range []*Receiver[string]{a, b} {
		select {
		case got := <-recv.C():
			if got != "hello" {
				t.Errorf("received %q, want %q", got, "hello")
			}
		case <-time.After(time.Second):
			t.Fatal("receiver did not get the event")
		}
	}
}

func TestBus_SlowSubscriberObservesGap(t *testing.T) {
	const capacity = 4
	bus := NewBus[int](WithCapacity(capacity))
	recv := bus.Subscribe()

	// Publish more than the buffer holds without draining.
	const total = 10
	for i := 0; i < total; i++ {
		bus.Publish(i)
	}

	if got := recv.Dropped(); got != total-capacity {
		t.Errorf("Dropped() = %d, want %d", got, total-capacity)
	}

	// The oldest events were evicted; the newest survive.
	var got []int
	for i := 0; i < capacity; i++ {
		select {
		case v := <-recv.C():
			got = append(got, v)
		case <-time.After(time.Second):
			t.Fatalf("only drained %d events, want %d", len(got), capacity)
		}
	}
	for i, v := range got {
		if want := total - capacity + i; v != want {
			t.Errorf("event %d = %d, want %d", i, v, want)
		}
	}
}

func TestBus_PublisherNeverBlocks(t *testing.T) {
	bus := NewBus[int](WithCapacity(1))
	_ = bus.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on an undrained subscriber")
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus[int]()
	bus.Publish(42) // must not panic or block

	if got := bus.Published(); got != 1 {
		t.Errorf("Published() = %d, want 1", got)
	}
}

func TestReceiver_Close(t *testing.T) {
	bus := NewBus[int]()
	recv := bus.Subscribe()

	if got := bus.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", got)
	}

	recv.Close()
	if got := bus.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount() after Close = %d, want 0", got)
	}

	select {
	case _, ok := <-recv.C():
		if ok {
			t.Error("expected closed channel after Close")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after Close")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus[int]()
	recv := bus.Subscribe()

	bus.Close()
	bus.Publish(1) // no-op after close

	select {
	case _, ok := <-recv.C():
		if ok {
			t.Error("expected closed channel after bus Close")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after bus Close")
	}

	// Subscribing after close yields a closed receiver, not a panic.
	late := bus.Subscribe()
	if _, ok := <-late.C(); ok {
		t.Error("expected closed channel for late subscriber")
	}
}
