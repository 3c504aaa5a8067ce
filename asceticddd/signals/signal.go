package signals

import (
	"reflect"
	"slices"
	"sync"
)

type entry[E any] struct {
	id       any
	observer Observer[E]
}

// SignalImp is safe for concurrent use. Notify runs observers on the
// caller's goroutine, in attach order, against a snapshot of the list, so
// an observer may detach itself while being notified.
type SignalImp[E any] struct {
	mu        sync.RWMutex
	observers []entry[E]
}

func NewSignal[E any]() *SignalImp[E] {
	return &SignalImp[E]{}
}

// Attach registers observer under observerID, or under the function's
// address when no id is given. Attaching an id twice keeps the first.
func (s *SignalImp[E]) Attach(observer Observer[E], observerID ...any) Detach {
	id := resolveID(observer, observerID)
	s.mu.Lock()
	if !slices.ContainsFunc(s.observers, func(e entry[E]) bool { return e.id == id }) {
		s.observers = append(s.observers, entry[E]{id: id, observer: observer})
	}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.detach(id) })
	}
}

func (s *SignalImp[E]) Detach(observer Observer[E], observerID ...any) {
	s.detach(resolveID(observer, observerID))
}

func (s *SignalImp[E]) detach(id any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = slices.DeleteFunc(s.observers, func(e entry[E]) bool { return e.id == id })
}

func (s *SignalImp[E]) Notify(event E) {
	s.mu.RLock()
	observers := slices.Clone(s.observers)
	s.mu.RUnlock()
	for _, e := range observers {
		e.observer(event)
	}
}

func (s *SignalImp[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

func resolveID[E any](observer Observer[E], observerID []any) any {
	if len(observerID) > 0 {
		return observerID[0]
	}
	return makeID(observer)
}

func makeID[E any](observer Observer[E]) uintptr {
	return reflect.ValueOf(observer).Pointer()
}
