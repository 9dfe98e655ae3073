package signal

import (
	"testing"

	"signalfeed/internal/models"
)

func TestHub_FanoutToAllSubscribers(t *testing.T) {
	h := NewHub(nil)
	a, cancelA := h.Subscribe(4)
	b, cancelB := h.Subscribe(4)
	defer cancelA()
	defer cancelB()

	h.PublishSignal(models.Signal{ID: "s1", Symbol: "EURUSD"}, true)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Type != EventInserted || ev.Signal == nil || ev.Signal.ID != "s1" || ev.At.IsZero() {
				t.Fatalf("%s got=%+v", name, ev)
			}
		default:
			t.Fatalf("%s received nothing", name)
		}
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(nil)
	_, cancel := h.Subscribe(1)
	defer cancel()

	for i := 0; i < 5; i++ {
		h.Publish(Event{Type: EventExpired, Count: int64(i)})
	}
	st := h.Stats()
	if st.Published != 5 || st.DroppedFanout != 4 {
		t.Fatalf("stats=%+v want published=5 dropped=4", st)
	}
}

func TestHub_CancelClosesAndUnsubscribes(t *testing.T) {
	h := NewHub(nil)
	ch, cancel := h.Subscribe(1)
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
	if h.Stats().Subscribers != 0 {
		t.Fatalf("subscribers=%d want=0", h.Stats().Subscribers)
	}
	h.Publish(Event{Type: EventCleared})
}
