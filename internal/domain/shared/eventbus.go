package shared

import "context"

// EventHandler consumes domain events published on the bus.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants.
	// An empty slice subscribes the handler to everything.
	EventTypes() []string
}

// EventPublisher is the write side of the bus. Services depend on this
// interface only; they never subscribe.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the read side of the bus.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event types, or for all
	// events when none are given.
	Subscribe(handler EventHandler, eventTypes ...string)
	// Unsubscribe detaches a handler from every type it was registered for.
	Unsubscribe(handler EventHandler)
}

// EventBus is the full pub/sub surface plus lifecycle control.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
