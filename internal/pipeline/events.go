package pipeline

import (
	"sync"
	"time"

	"omniscore/internal/domain"
)

// EventType names a session event.
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageSucceeded EventType = "stage.succeeded"
	EventStageFailed    EventType = "stage.failed"
	EventWorkingChanged EventType = "working.changed"
	EventDraftChanged   EventType = "draft.changed"
	EventAssetSaved     EventType = "asset.saved"
	EventPostPublished  EventType = "post.published"
)

// Event is published on a session's broker for every transition. Notice
// carries the user-facing failure message, when there is one.
type Event struct {
	Type      EventType          `json:"type"`
	SessionID string             `json:"session_id"`
	Stage     Stage              `json:"stage,omitempty"`
	Op        Op                 `json:"op,omitempty"`
	Status    domain.StageStatus `json:"status,omitempty"`
	Notice    string             `json:"notice,omitempty"`
	Working   *WorkingAsset      `json:"working,omitempty"`
	Draft     *Draft             `json:"draft,omitempty"`
	Asset     *domain.MediaAsset `json:"asset,omitempty"`
	Post      *domain.Post       `json:"post,omitempty"`
	At        time.Time          `json:"at"`
}

const defaultSubscriberBuffer = 32

// Broker fans session events out to subscribers. Slow subscribers lose
// events rather than blocking the pipeline.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The returned cancel func unregisters
// it and closes the channel; it is safe to call more than once.
func (b *Broker) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers evt to every subscriber without blocking.
func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			eventsDropped.Inc()
		}
	}
}

// Close disconnects every subscriber.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
