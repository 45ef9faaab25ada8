package env

import (
	"fmt"
	"sync"
)

// Observer is notified of environment lifecycle transitions. Callbacks run
// synchronously on the goroutine driving the environment.
type Observer interface {
	EnvironmentCreated(e *Environment)
	EnvironmentEntered(e *Environment, depth int)
	EnvironmentExited(e *Environment, depth int)
	EnvironmentDetached(e *Environment)
	EnvironmentDisposed(e *Environment)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) EnvironmentCreated(*Environment) {}
func (NopObserver) EnvironmentEntered(*Environment, int) {}
func (NopObserver) EnvironmentExited(*Environment, int) {}
func (NopObserver) EnvironmentDetached(*Environment) {}
func (NopObserver) EnvironmentDisposed(*Environment) {}

// Observers fans events out in order.
type Observers []Observer

func (o Observers) EnvironmentCreated(e *Environment) {
	for _, x := range o {
		x.EnvironmentCreated(e)
	}
}

func (o Observers) EnvironmentEntered(e *Environment, depth int) {
	for _, x := range o {
		x.EnvironmentEntered(e, depth)
	}
}

func (o Observers) EnvironmentExited(e *Environment, depth int) {
	for _, x := range o {
		x.EnvironmentExited(e, depth)
	}
}

func (o Observers) EnvironmentDetached(e *Environment) {
	for _, x := range o {
		x.EnvironmentDetached(e)
	}
}

func (o Observers) EnvironmentDisposed(e *Environment) {
	for _, x := range o {
		x.EnvironmentDisposed(e)
	}
}

// EventKind names a lifecycle transition.
type EventKind string

const (
	EventCreated  EventKind = "created"
	EventEntered  EventKind = "entered"
	EventExited   EventKind = "exited"
	EventDetached EventKind = "detached"
	EventDisposed EventKind = "disposed"
)

// Event is one recorded transition.
type Event struct {
	Kind  EventKind
	ID    uint64
	Depth int
}

func (e Event) String() string {
	return fmt.Sprintf("%s:%d", e.Kind, e.ID)
}

// EventLog records every event it observes.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *EventLog) add(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *EventLog) EnvironmentCreated(e *Environment) {
	l.add(Event{Kind: EventCreated, ID: e.id})
}

func (l *EventLog) EnvironmentEntered(e *Environment, depth int) {
	l.add(Event{Kind: EventEntered, ID: e.id, Depth: depth})
}

func (l *EventLog) EnvironmentExited(e *Environment, depth int) {
	l.add(Event{Kind: EventExited, ID: e.id, Depth: depth})
}

func (l *EventLog) EnvironmentDetached(e *Environment) {
	l.add(Event{Kind: EventDetached, ID: e.id})
}

func (l *EventLog) EnvironmentDisposed(e *Environment) {
	l.add(Event{Kind: EventDisposed, ID: e.id})
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Strings renders events as "kind:id".
func (l *EventLog) Strings() []string {
	events := l.Events()
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.String()
	}
	return out
}

// Count returns how many events of kind were recorded for id.
func (l *EventLog) Count(kind EventKind, id uint64) int {
	n := 0
	for _, ev := range l.Events() {
		if ev.Kind == kind && ev.ID == id {
			n++
		}
	}
	return n
}

// Reset forgets all events.
func (l *EventLog) Reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}
