package signal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"signalfeed/internal/models"
)

type EventType string

const (
	EventInserted  EventType = "signal.inserted"
	EventUpdated   EventType = "signal.updated"
	EventCancelled EventType = "signal.cancelled"
	EventExpired   EventType = "signals.expired"
	EventCleared   EventType = "signals.cleared"
)

// Event is what live subscribers receive. Signal is set for per-record
// events, Count for bulk ones.
type Event struct {
	Type   EventType      `json:"type"`
	Signal *models.Signal `json:"signal,omitempty"`
	Count  int64          `json:"count,omitempty"`
	At     time.Time      `json:"at"`
}

// Hub fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and the drop is counted.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	nextID uint64

	logger *zap.Logger

	published     uint64
	droppedFanout uint64
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{subs: map[uint64]chan Event{}, logger: logger}
}

// Subscribe returns a receive channel and a cancel func that closes it.
func (h *Hub) Subscribe(buf int) (<-chan Event, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	atomic.AddUint64(&h.published, 1)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			atomic.AddUint64(&h.droppedFanout, 1)
		}
	}
}

// PublishSignal emits inserted or updated for an upsert result.
func (h *Hub) PublishSignal(sig models.Signal, inserted bool) {
	t := EventUpdated
	if inserted {
		t = EventInserted
	}
	h.Publish(Event{Type: t, Signal: &sig})
}

type Stats struct {
	Subscribers   int    `json:"subscribers"`
	Published     uint64 `json:"published"`
	DroppedFanout uint64 `json:"dropped_fanout"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.subs)
	h.mu.RUnlock()
	return Stats{
		Subscribers:   n,
		Published:     atomic.LoadUint64(&h.published),
		DroppedFanout: atomic.LoadUint64(&h.droppedFanout),
	}
}

// Run logs hub stats until ctx is done.
func (h *Hub) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = 60 * time.Second
	}
	statsTicker := time.NewTicker(every)
	defer statsTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-statsTicker.C:
			st := h.Stats()
			h.logger.Info("signal hub stats",
				zap.Int("subscribers", st.Subscribers),
				zap.Uint64("published", st.Published),
				zap.Uint64("dropped_fanout", st.DroppedFanout),
			)
		}
	}
}
