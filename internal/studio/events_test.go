package studio

import (
	"testing"
	"time"
)

func TestStreamPublisher_FanOut(t *testing.T) {
	p := NewStreamPublisher()
	ch1, cancel1 := p.Subscribe()
	ch2, cancel2 := p.Subscribe()
	defer cancel2()

	p.Publish(Event{Name: "generation_started", ProjectID: "p1"})
	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case e := <-ch:
			if e.Name != "generation_started" || e.ProjectID != "p1" {
				t.Fatalf("unexpected event: %+v", e)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event")
		}
	}

	// After cancel the channel closes and no longer receives.
	cancel1()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected closed channel")
	}
	p.Publish(Event{Name: "generation_finished"})
	select {
	case e := <-ch2:
		if e.Name != "generation_finished" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for second event")
	}
}

func TestStreamPublisher_SlowSubscriberDrops(t *testing.T) {
	p := NewStreamPublisher()
	_, cancel := p.Subscribe()
	defer cancel()
	// Publish more than the channel buffers; must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			p.Publish(Event{Name: "tick"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on slow subscriber")
	}
}

func TestMemoryPublisher(t *testing.T) {
	p := NewMemoryPublisher()
	p.Publish(Event{Name: "a"})
	p.Publish(Event{Name: "b"})
	evs := p.Events()
	if len(evs) != 2 || evs[0].Name != "a" || evs[1].Name != "b" {
		t.Fatalf("events: %+v", evs)
	}
}
