// Package events fans compiler and coercer notifications out to any number
// of observers.
package events

import (
	"log/slog"
	"reflect"
	"time"

	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/signals"
)

type CompileEvent struct {
	Entity  string
	Nodes   int
	Elapsed time.Duration
	Err     error
}

type FallbackEvent struct {
	Type reflect.Type
}

// Hub implements criteria.CompileObserver and coercion.FallbackObserver by
// notifying its signals.
type Hub struct {
	Compiles  signals.Signal[CompileEvent]
	Fallbacks signals.Signal[FallbackEvent]
}

func NewHub() *Hub {
	return &Hub{
		Compiles:  signals.NewSignal[CompileEvent](),
		Fallbacks: signals.NewSignal[FallbackEvent](),
	}
}

func (h *Hub) ObserveCompile(entity string, nodes int, elapsed time.Duration, err error) {
	h.Compiles.Notify(CompileEvent{Entity: entity, Nodes: nodes, Elapsed: elapsed, Err: err})
}

func (h *Hub) ObserveFallback(target reflect.Type) {
	h.Fallbacks.Notify(FallbackEvent{Type: target})
}

type compileObserver interface {
	ObserveCompile(entity string, nodes int, elapsed time.Duration, err error)
}

type fallbackObserver interface {
	ObserveFallback(target reflect.Type)
}

// Forward attaches obs to whichever of the hub's signals it can observe and
// returns a function detaching it from both.
func (h *Hub) Forward(obs any) signals.Detach {
	var detaches []signals.Detach
	if c, ok := obs.(compileObserver); ok {
		detaches = append(detaches, h.Compiles.Attach(func(e CompileEvent) {
			c.ObserveCompile(e.Entity, e.Nodes, e.Elapsed, e.Err)
		}, obs))
	}
	if f, ok := obs.(fallbackObserver); ok {
		detaches = append(detaches, h.Fallbacks.Attach(func(e FallbackEvent) {
			f.ObserveFallback(e.Type)
		}, obs))
	}
	return func() {
		for _, d := range detaches {
			d()
		}
	}
}

// SlowCompiles logs failed compilations and the ones taking longer than
// threshold.
func SlowCompiles(logger *slog.Logger, threshold time.Duration) signals.Observer[CompileEvent] {
	return func(e CompileEvent) {
		switch {
		case e.Err != nil:
			logger.Warn("compile failed", "entity", e.Entity, "error", e.Err)
		case e.Elapsed > threshold:
			logger.Warn("slow compile", "entity", e.Entity, "nodes", e.Nodes, "elapsed", e.Elapsed)
		}
	}
}
