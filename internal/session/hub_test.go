package session

import (
	"testing"
	"time"
)

func TestHubReplaysHistory(t *testing.T) {
	t.Parallel()

	hub := NewHub(2, nil)
	for _, st := range []State{StatePending, StateAttaching, StateLive} {
		hub.Publish(Event{SessionID: "s1", State: st, At: time.Now()})
	}

	backlog, events, cancel := hub.Subscribe("s1")
	defer cancel()

	if len(backlog) != 2 {
		t.Fatalf("Expected history bounded to 2, got %d", len(backlog))
	}
	if backlog[0].State != StateAttaching || backlog[1].Seq != 3 {
		t.Errorf("Unexpected backlog %+v", backlog)
	}

	hub.Publish(Event{SessionID: "s1", State: StateCompleted})
	hub.Publish(Event{SessionID: "other", State: StatePending})

	select {
	case ev := <-events:
		if ev.State != StateCompleted || ev.Seq != 4 {
			t.Errorf("Unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected live event")
	}

	select {
	case ev := <-events:
		t.Errorf("Received event for another session: %+v", ev)
	default:
	}
}

func TestHubClose(t *testing.T) {
	t.Parallel()

	hub := NewHub(0, nil)
	hub.Publish(Event{SessionID: "s1", State: StatePending})
	_, events, cancel := hub.Subscribe("s1")

	hub.Close("s1")
	if _, ok := <-events; ok {
		t.Error("Expected closed channel")
	}
	cancel()

	backlog, _, cancel2 := hub.Subscribe("s1")
	defer cancel2()
	if len(backlog) != 0 {
		t.Errorf("Expected history to be dropped, got %d", len(backlog))
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	t.Parallel()

	hub := NewHub(0, nil)
	_, events, cancel := hub.Subscribe("s1")
	defer cancel()

	for range subscriberBuffer + 5 {
		hub.Publish(Event{SessionID: "s1", State: StateLive})
	}
	if len(events) != subscriberBuffer {
		t.Errorf("Expected a full buffer of %d, got %d", subscriberBuffer, len(events))
	}
}
