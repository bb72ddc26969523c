package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventHandler observes pipeline events. Handlers must not mutate pipeline state.
type EventHandler func(ctx context.Context, event *StageEvent) error

// Subscription represents an event subscription
type Subscription struct {
	ID         string
	EventTypes []EventType // empty matches every type
	Handler    EventHandler
}

func (s *Subscription) matches(event *StageEvent) bool {
	if len(s.EventTypes) == 0 {
		return true
	}
	for _, eventType := range s.EventTypes {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

var (
	// ErrBusClosed is returned by Publish after Close
	ErrBusClosed = errors.New("event bus is closed")
	// ErrBufferFull is returned when Publish would block
	ErrBufferFull = errors.New("event buffer is full")
)

// EventBus fans pipeline events out to subscribers on a fixed worker pool
type EventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	eventBuffer   chan *StageEvent
	closed        bool
	wg            sync.WaitGroup

	published atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// EventBusStats tracks event bus statistics
type EventBusStats struct {
	EventsPublished   int64 `json:"events_published"`
	EventsDelivered   int64 `json:"events_delivered"`
	EventsFailed      int64 `json:"events_failed"`
	EventsDropped     int64 `json:"events_dropped"`
	ActiveSubscribers int64 `json:"active_subscribers"`
	EventsInBuffer    int64 `json:"events_in_buffer"`
}

// NewEventBus creates a new event bus
func NewEventBus(bufferSize, workers int) *EventBus {
	if workers < 1 {
		workers = 1
	}
	eb := &EventBus{
		subscriptions: make(map[string]*Subscription),
		eventBuffer:   make(chan *StageEvent, bufferSize),
	}

	for i := 0; i < workers; i++ {
		eb.wg.Add(1)
		go eb.worker(i)
	}

	log.Debug().
		Int("buffer_size", bufferSize).
		Int("workers", workers).
		Msg("Event bus started")

	return eb
}

// Publish queues an event without blocking
func (eb *EventBus) Publish(event *StageEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return ErrBusClosed
	}
	select {
	case eb.eventBuffer <- event:
		eb.published.Add(1)
		return nil
	default:
		eb.dropped.Add(1)
		log.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("Event dropped due to full buffer")
		return ErrBufferFull
	}
}

// Subscribe registers a handler for the given event types
func (eb *EventBus) Subscribe(eventTypes []EventType, handler EventHandler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return nil, ErrBusClosed
	}
	sub := &Subscription{
		ID:         "sub_" + uuid.NewString(),
		EventTypes: eventTypes,
		Handler:    handler,
	}
	eb.subscriptions[sub.ID] = sub

	log.Debug().
		Str("subscription_id", sub.ID).
		Interface("event_types", eventTypes).
		Msg("New subscription created")

	return sub, nil
}

// Unsubscribe removes a subscription
func (eb *EventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[subscriptionID]; !exists {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	return nil
}

// Close stops accepting events and waits until the buffered ones are delivered
func (eb *EventBus) Close() {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return
	}
	eb.closed = true
	close(eb.eventBuffer)
	eb.mu.Unlock()

	eb.wg.Wait()
	log.Debug().Msg("Event bus shut down")
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	eb.mu.RLock()
	subscribers := int64(len(eb.subscriptions))
	eb.mu.RUnlock()

	return EventBusStats{
		EventsPublished:   eb.published.Load(),
		EventsDelivered:   eb.delivered.Load(),
		EventsFailed:      eb.failed.Load(),
		EventsDropped:     eb.dropped.Load(),
		ActiveSubscribers: subscribers,
		EventsInBuffer:    int64(len(eb.eventBuffer)),
	}
}

func (eb *EventBus) worker(workerID int) {
	defer eb.wg.Done()

	for event := range eb.eventBuffer {
		eb.deliverEvent(event)
	}
	log.Debug().Int("worker_id", workerID).Msg("Event bus worker stopping")
}

func (eb *EventBus) deliverEvent(event *StageEvent) {
	eb.mu.RLock()
	matching := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		if sub.matches(event) {
			matching = append(matching, sub)
		}
	}
	eb.mu.RUnlock()

	for _, sub := range matching {
		if err := sub.Handler(context.Background(), event); err != nil {
			eb.failed.Add(1)
			log.Error().
				Err(err).
				Str("subscription_id", sub.ID).
				Str("event_id", event.ID).
				Msg("Event handler failed")
			continue
		}
		eb.delivered.Add(1)
	}
}
