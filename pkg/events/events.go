package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRunStarted      EventType = "run.started"
	EventRunTransition   EventType = "run.transition"
	EventRunFailed       EventType = "run.failed"
	EventRunCompleted    EventType = "run.completed"
	EventSuiteStarted    EventType = "suite.started"
	EventSuiteFailed     EventType = "suite.failed"
	EventTeardownFailed  EventType = "teardown.failed"
	EventMonitoring      EventType = "monitoring.started"
	EventBaseline        EventType = "baseline.completed"
	EventDeviceSkipped   EventType = "device.skipped"
	EventMatrixCompleted EventType = "matrix.completed"
)

// Event is a progress notification from the run pipeline
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	RunID     string
	Message   string
	Metadata  map[string]string
}

// New creates an event with a fresh ID
func New(typ EventType, runID, message string, metadata map[string]string) *Event {
	return &Event{
		ID:       uuid.NewString(),
		Type:     typ,
		RunID:    runID,
		Message:  message,
		Metadata: metadata,
	}
}

// Publisher is the sending side of a Broker
type Publisher interface {
	Publish(event *Event)
}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(*Event) {}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans published events out to subscribers
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop delivers whatever is still queued, then closes every subscriber
func (b *Broker) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh

		b.mu.Lock()
		defer b.mu.Unlock()
		for sub := range b.subscribers {
			delete(b.subscribers, sub)
			close(sub)
		}
	})
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish queues an event for every subscriber. It never blocks after Stop.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	select {
	case <-b.stopCh:
		return
	default:
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	defer close(b.doneCh)
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			for {
				select {
				case event := <-b.eventCh:
					b.broadcast(event)
				default:
					return
				}
			}
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
