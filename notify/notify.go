// Package notify carries bot events to external sinks. Delivery is
// fire-and-forget: the engine never blocks on a sink and never fails a tick
// because a notification could not be sent.
package notify

import (
	"time"
)

type EventType string

const (
	EventLifecycle EventType = "lifecycle"
	EventTicker    EventType = "ticker"
	EventTrade     EventType = "trade"
	EventVeto      EventType = "veto"
	EventOrderFail EventType = "order_failure"
	EventAlert     EventType = "alert"
)

// Event is one message on the push channel. Payload is event-specific and
// must be JSON-serializable.
type Event struct {
	Type    EventType `json:"type"`
	Time    time.Time `json:"time"`
	Message string    `json:"message,omitempty"`
	Payload any       `json:"payload,omitempty"`
}

func New(t EventType, msg string, payload any) Event {
	return Event{Type: t, Time: time.Now().UTC(), Message: msg, Payload: payload}
}

// Notifier accepts events for delivery. Publish must not block.
type Notifier interface {
	Publish(e Event)
}

// Multi fans one event out to several sinks.
type Multi []Notifier

func (m Multi) Publish(e Event) {
	for _, n := range m {
		n.Publish(e)
	}
}

// Discard drops every event. Used when no sink is configured.
type Discard struct{}

func (Discard) Publish(Event) {}
