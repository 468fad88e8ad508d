// Package events provides the event-type registry and the per-entity
// event bus.
//
// Event types are grouped into families (mouse, drag, popup, ...). Each
// family is a closed set of variants declared as its own string type, and
// a Registry flattens every registered family into one name -> variant
// table so that an inbound remote event, identified only by its name, can
// be resolved to a typed variant and decoded into the matching Event
// struct. Plugins add families at runtime with Register.
//
// A Bus belongs to exactly one entity. Listeners are registered through
// *Listener handles so that registering the same handle twice is a no-op:
//
//	l := events.Handle(func(e *events.MouseEvent) {
//	    fmt.Println(e.LatLng)
//	})
//	bus.On(events.Click, l)
//	bus.On(events.Click, l) // still delivered once
package events
