package signals

type Observer[E any] func(E)

// Detach removes the observer it was returned for. Calling it twice is a
// no-op.
type Detach func()

type Signal[E any] interface {
	Attach(observer Observer[E], observerID ...any) Detach
	Detach(observer Observer[E], observerID ...any)
	Notify(event E)
	Len() int
}
