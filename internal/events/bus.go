package events

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"flatfinder/server/internal/models"
)

var (
	ErrBusFull   = errors.New("event bus is full")
	ErrBusClosed = errors.New("event bus is closed")
)

// Topic identifies a kind of event
type Topic string

const (
	TopicPreferenceUpdated Topic = "preference.updated"
	TopicListingApproved   Topic = "listing.approved"
)

// Event is delivered to every handler subscribed to its topic.
// Payload is a PreferenceUpdated or ListingEvent value.
type Event struct {
	Topic   Topic
	Payload any
}

// PreferenceUpdated carries the saved preference of UserID. A nil Preference
// means the user removed it.
type PreferenceUpdated struct {
	UserID     string
	Preference *models.UserPreference
}

type ListingEvent struct {
	Listing models.Listing
	Action  string // approved, imported
}

type Handler func(Event) error

// Bus is an in-memory publish/subscribe service. Events are queued on a bounded
// channel and delivered in order by a single goroutine started with Start.
type Bus struct {
	items    chan Event
	done     chan struct{}
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	nextID   uint64
	handlers map[Topic]map[uint64]Handler
}

// NewBus creates a new bus with the specified buffer size
func NewBus(bufferSize int, logger *logrus.Logger) *Bus {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bus{
		items:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
		logger:   logger,
		handlers: make(map[Topic]map[uint64]Handler),
	}
}

// Publish queues an event without blocking
func (b *Bus) Publish(ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.items <- ev:
		b.logger.WithField("topic", ev.Topic).Debug("Published event")
		return nil
	default:
		return ErrBusFull
	}
}

// Subscribe registers handler for topic. The returned function removes it again.
func (b *Bus) Subscribe(topic Topic, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[uint64]Handler)
	}
	b.handlers[topic][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[topic], id)
		})
	}
}

// Start begins delivering queued events
func (b *Bus) Start() {
	b.wg.Add(1)
	go b.process()
}

func (b *Bus) process() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.items:
			b.dispatch(ev)
		}
	}
}

// dispatch sends the event to a snapshot of the topic's handlers
func (b *Bus) dispatch(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[ev.Topic]))
	for _, h := range b.handlers[ev.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ev); err != nil {
			b.logger.WithError(err).WithField("topic", ev.Topic).Error("Handler failed to process event")
		}
	}
}

// Close stops delivery; events still queued are dropped
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}
