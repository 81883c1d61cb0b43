package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a record change notification.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Type is one of the EventType constants.
	Type string `json:"type"`

	// Backend names the store engine that produced the event.
	Backend string `json:"backend"`

	RecordID int64  `json:"record_id"`
	Message  string `json:"message"`
	Level    string `json:"level"`

	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeRecordInserted = "record.inserted"
	EventTypeRecordUpdated  = "record.updated"
	EventTypeRecordDeleted  = "record.deleted"
	EventTypeStoreError     = "store.error"
)

// Event levels.
const (
	EventLevelInfo  = "info"
	EventLevelError = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher fans record events out to subscribers.
//
// In synchronous mode subscribers run inline inside Publish. In async mode
// events are buffered and delivered in batches from a single goroutine, so
// subscribers still observe events in publish order.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		if cfg.BufferSize <= 0 {
			cancel()
			return nil, fmt.Errorf("event buffer size must be positive, got: %d", cfg.BufferSize)
		}
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if ep.config.EnableAsync {
		select {
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
		}
		select {
		case ep.buffer <- event:
			return nil
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishRecordInserted publishes a record inserted event.
func (ep *EventPublisher) PublishRecordInserted(backend string, id int64) error {
	return ep.Publish(Event{
		Type:     EventTypeRecordInserted,
		Backend:  backend,
		RecordID: id,
		Message:  fmt.Sprintf("record %d inserted", id),
		Level:    EventLevelInfo,
	})
}

// PublishRecordUpdated publishes a record updated event.
func (ep *EventPublisher) PublishRecordUpdated(backend string, id int64) error {
	return ep.Publish(Event{
		Type:     EventTypeRecordUpdated,
		Backend:  backend,
		RecordID: id,
		Message:  fmt.Sprintf("record %d updated", id),
		Level:    EventLevelInfo,
	})
}

// PublishRecordDeleted publishes a record deleted event.
func (ep *EventPublisher) PublishRecordDeleted(backend string, id int64) error {
	return ep.Publish(Event{
		Type:     EventTypeRecordDeleted,
		Backend:  backend,
		RecordID: id,
		Message:  fmt.Sprintf("record %d deleted", id),
		Level:    EventLevelInfo,
	})
}

// PublishStoreError publishes an engine failure.
func (ep *EventPublisher) PublishStoreError(backend, operation string, id int64, err error) error {
	return ep.Publish(Event{
		Type:     EventTypeStoreError,
		Backend:  backend,
		RecordID: id,
		Message:  fmt.Sprintf("%s failed: %v", operation, err),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"operation": operation,
		},
	})
}

// Subscribe adds a new event subscriber. A nil filter accepts every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// processEvents drains the buffer, delivering full batches immediately and
// partial batches every FlushInterval.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	interval := ep.config.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]Event, 0, ep.config.MaxBatchSize)
	flush := func() {
		for _, event := range batch {
			ep.deliverEvent(event)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			if len(batch) >= ep.config.MaxBatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-ep.ctx.Done():
			// Drain whatever is still buffered before shutting down
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all matching subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher after delivering buffered events.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRecordID creates a filter that only allows events for one record.
func FilterByRecordID(id int64) EventFilter {
	return func(event Event) bool {
		return event.RecordID == id
	}
}
