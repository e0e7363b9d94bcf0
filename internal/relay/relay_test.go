package relay

import (
	"sync"
	"testing"
)

func TestRelay_PublishReachesAllCurrentListeners(t *testing.T) {
	r := New()
	a := r.Subscribe()
	b := r.Subscribe()

	evt, err := r.Publish("webhook.response", map[string]any{"id": "1", "response": "done"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	for name, l := range map[string]*Listener{"a": a, "b": b} {
		select {
		case got := <-l.Events():
			if got.ID != evt.ID || got.Topic != "webhook.response" {
				t.Fatalf("listener %s got unexpected event %#v", name, got)
			}
			if string(got.Payload) != `{"id":"1","response":"done"}` {
				t.Fatalf("listener %s got unexpected payload %s", name, got.Payload)
			}
		default:
			t.Fatalf("listener %s received nothing", name)
		}
	}
}

func TestRelay_LateSubscriberGetsNoBacklog(t *testing.T) {
	r := New()
	if _, err := r.Publish("t", "before"); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	l := r.Subscribe()
	select {
	case evt := <-l.Events():
		t.Fatalf("expected no backlog, got %#v", evt)
	default:
	}
}

func TestRelay_UnsubscribeIsIdempotent(t *testing.T) {
	r := New()
	l := r.Subscribe()
	keep := r.Subscribe()
	r.Unsubscribe(l)
	r.Unsubscribe(l)
	r.Unsubscribe(nil)
	if r.Len() != 1 {
		t.Fatalf("expected 1 listener left, got %d", r.Len())
	}
	if _, ok := <-l.Events(); ok {
		t.Fatal("expected removed listener channel to be closed")
	}
	if _, err := r.Publish("t", 1); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := <-keep.Events(); string(got.Payload) != "1" {
		t.Fatalf("unexpected payload for remaining listener: %s", got.Payload)
	}
}

func TestRelay_FullListenerDropsWithoutBlocking(t *testing.T) {
	r := NewWithBuffer(1)
	slow := r.Subscribe()
	fast := r.Subscribe()

	for i := 0; i < 3; i++ {
		if _, err := r.Publish("t", i); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		if got := <-fast.Events(); string(got.Payload) == "" {
			t.Fatal("fast listener missed an event")
		}
	}
	if got := <-slow.Events(); string(got.Payload) != "0" {
		t.Fatalf("expected slow listener to keep the first event, got %s", got.Payload)
	}
	if r.Dropped() != 2 {
		t.Fatalf("expected 2 dropped deliveries, got %d", r.Dropped())
	}
}

func TestRelay_ConcurrentPublishDeliversEachEventOnce(t *testing.T) {
	r := NewWithBuffer(64)
	l := r.Subscribe()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				_, _ = r.Publish("t", j)
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		evt := <-l.Events()
		if seen[evt.ID] {
			t.Fatalf("event %s delivered twice", evt.ID)
		}
		seen[evt.ID] = true
	}
}

func TestRelay_PublishRejectsUnencodablePayload(t *testing.T) {
	r := New()
	if _, err := r.Publish("t", make(chan int)); err == nil {
		t.Fatal("expected encode error")
	}
}
