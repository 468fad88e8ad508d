package events

// Listener is a registration handle. Two registrations are the same
// listener only when they use the same *Listener.
type Listener struct {
	fn func(Event) bool
}

// Listen wraps fn as a listener that accepts every event.
func Listen(fn func(Event)) *Listener {
	return &Listener{fn: func(e Event) bool {
		fn(e)
		return true
	}}
}

// Handle wraps a listener for one concrete payload type. Events of other
// payload types are skipped.
func Handle[E Event](fn func(E)) *Listener {
	return &Listener{fn: func(e Event) bool {
		te, ok := e.(E)
		if !ok {
			return false
		}
		fn(te)
		return true
	}}
}
