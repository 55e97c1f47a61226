package bridge

import "github.com/plus3/scenebridge/ecs"

// Events is a double-buffered event queue resource. Events sent between updates, or
// during an update, become readable in the next update after the buffers rotate.
type Events[T any] struct {
	current []T
	next    []T
}

// Send queues ev for the next update.
func (e *Events[T]) Send(ev T) {
	e.next = append(e.next, ev)
}

// Read returns the events delivered to the running update. The slice is never reused by
// later sends, so it stays intact after the buffers rotate.
func (e *Events[T]) Read() []T {
	return e.current
}

// Len returns the number of queued events that are not readable yet.
func (e *Events[T]) Len() int {
	return len(e.next)
}

// Update rotates the buffers. Events of the previous update are discarded.
func (e *Events[T]) Update() {
	e.current, e.next = e.next, nil
}

// EventsUpdateSystem rotates an Events resource. It runs in the First stage.
type EventsUpdateSystem[T any] struct {
	Events ecs.Singleton[Events[T]]
}

func (s *EventsUpdateSystem[T]) Execute(frame *ecs.UpdateFrame) {
	if events := s.Events.Get(); events != nil {
		events.Update()
	}
}
