package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the goal engine.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// SeekID is the associated seek traversal ID, if applicable.
	SeekID string `json:"seek_id,omitempty"`

	// Goal is the description of the goal involved, if applicable.
	Goal string `json:"goal,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeSeekStarted        = "seek.started"
	EventTypeSeekCompleted      = "seek.completed"
	EventTypeSeekFailed         = "seek.failed"
	EventTypeActionRun          = "action.run"
	EventTypeActionFailed       = "action.failed"
	EventTypeStateAbsent        = "state.absent"
	EventTypeReconcileTriggered = "reconcile.triggered"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
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

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
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
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishSeekStarted publishes a seek started event.
func (ep *EventPublisher) PublishSeekStarted(seekID, goalDescription, trigger string) error {
	return ep.Publish(Event{
		Type:    EventTypeSeekStarted,
		Source:  "engine",
		SeekID:  seekID,
		Goal:    goalDescription,
		Message: fmt.Sprintf("Seeking %s", goalDescription),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"trigger": trigger,
		},
	})
}

// PublishSeekCompleted publishes a seek completed event.
func (ep *EventPublisher) PublishSeekCompleted(seekID, goalDescription string, satisfied bool, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeSeekCompleted,
		Source:  "engine",
		SeekID:  seekID,
		Goal:    goalDescription,
		Message: fmt.Sprintf("Seek of %s completed (satisfied=%t)", goalDescription, satisfied),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"satisfied": satisfied,
			"duration":  duration.Seconds(),
		},
	})
}

// PublishSeekFailed publishes a seek failed event.
func (ep *EventPublisher) PublishSeekFailed(seekID, goalDescription, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeSeekFailed,
		Source:  "engine",
		SeekID:  seekID,
		Goal:    goalDescription,
		Message: fmt.Sprintf("Seek of %s failed: %s", goalDescription, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishActionRun publishes an action run event.
func (ep *EventPublisher) PublishActionRun(seekID, goalDescription string, err error) error {
	if err != nil {
		return ep.Publish(Event{
			Type:    EventTypeActionFailed,
			Source:  "engine",
			SeekID:  seekID,
			Goal:    goalDescription,
			Message: fmt.Sprintf("Action for %s failed: %s", goalDescription, err),
			Level:   EventLevelError,
			Data: map[string]interface{}{
				"reason": err.Error(),
			},
		})
	}
	return ep.Publish(Event{
		Type:    EventTypeActionRun,
		Source:  "engine",
		SeekID:  seekID,
		Goal:    goalDescription,
		Message: fmt.Sprintf("Action for %s completed", goalDescription),
		Level:   EventLevelInfo,
	})
}

// PublishReconcileTriggered publishes a reconcile triggered event.
func (ep *EventPublisher) PublishReconcileTriggered(runID, trigger string) error {
	return ep.Publish(Event{
		Type:    EventTypeReconcileTriggered,
		Source:  "agent",
		SeekID:  runID,
		Message: fmt.Sprintf("Reconcile %s triggered by %s", runID, trigger),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"trigger": trigger,
		},
	})
}

// Subscribe adds a new event subscriber. A nil filter receives every
// event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// processEvents delivers events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			// Drain remaining events before shutting down
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers.
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

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled || ep.cancel == nil {
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

// FilterByLevel creates a filter that only allows events of a specific
// level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]
	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of the given
// types.
func FilterByType(types ...string) EventFilter {
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(event Event) bool {
		return allowed[event.Type]
	}
}
