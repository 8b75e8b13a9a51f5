// Package notify fans entity change events out to connected subscribers.
// Delivery is at-most-once: slow subscribers drop events, nothing is
// replayed.
package notify

import (
	"sync"

	"campuscore/internal/core"
	"campuscore/pkg/domain"
)

// Pseudo entity and action used for the connection greeting.
const (
	EntitySystem    domain.EntityType = "SYSTEM"
	ActionConnected domain.Action     = "CONNECTED"
)

// Event is the wire form delivered to subscribers.
type Event struct {
	Entity domain.EntityType    `json:"entity"`
	Action domain.Action        `json:"action"`
	Data   domain.ChangePayload `json:"data"`
}

// subscriberBuffer bounds each subscriber's pending events. A full buffer
// drops the event for that subscriber only.
const subscriberBuffer = 16

// Subscriber receives events on C until Cancel is called or the registry
// closes.
type Subscriber struct {
	C      chan Event
	cancel func()
	once   sync.Once
}

// Cancel detaches the subscriber and closes its channel.
func (s *Subscriber) Cancel() { s.once.Do(s.cancel) }

// Gauges tracks the subscriber population, typically in a metrics sink.
type Gauges interface {
	EventPublished()
	SubscriberAdded()
	SubscriberRemoved()
}

type noopGauges struct{}

func (noopGauges) EventPublished()    {}
func (noopGauges) SubscriberAdded()   {}
func (noopGauges) SubscriberRemoved() {}

// Registry is a mutex-guarded subscriber set implementing core.Publisher.
type Registry struct {
	mu          sync.Mutex
	subscribers map[*Subscriber]struct{}
	closed      bool

	logger core.Logger
	gauges Gauges
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger attaches a structured logger.
func WithLogger(logger core.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithGauges attaches a metrics sink.
func WithGauges(gauges Gauges) Option {
	return func(r *Registry) {
		if gauges != nil {
			r.gauges = gauges
		}
	}
}

// NewRegistry constructs an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      core.NopLogger(),
		gauges:      noopGauges{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a new subscriber. After Close it returns a subscriber
// whose channel is already closed.
func (r *Registry) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Event, subscriberBuffer)}
	sub.cancel = func() { r.remove(sub) }
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(sub.C)
		return sub
	}
	r.subscribers[sub] = struct{}{}
	r.gauges.SubscriberAdded()
	return sub
}

func (r *Registry) remove(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subscribers[sub]; !ok {
		return
	}
	delete(r.subscribers, sub)
	close(sub.C)
	r.gauges.SubscriberRemoved()
}

// Publish marshals data once and delivers the event to every subscriber
// without blocking. Subscribers with a full buffer miss the event.
func (r *Registry) Publish(entity domain.EntityType, action domain.Action, data any) {
	payload := domain.UndefinedChangePayload()
	if data != nil {
		var err error
		payload, err = domain.NewChangePayloadFromValue(data)
		if err != nil {
			r.logger.Error("change event payload not serializable", "entity", entity, "action", action, "error", err)
			return
		}
	}
	event := Event{Entity: entity, Action: action, Data: payload}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for sub := range r.subscribers {
		select {
		case sub.C <- event:
			r.gauges.EventPublished()
		default:
			r.logger.Debug("slow subscriber dropped event", "entity", entity, "action", action)
		}
	}
}

// Close detaches every subscriber and rejects future publishes.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for sub := range r.subscribers {
		delete(r.subscribers, sub)
		close(sub.C)
		r.gauges.SubscriberRemoved()
	}
}
