package resource

// Handle is an opaque, generation-checked reference to a slot in a Table.
// The low 32 bits hold the slot index plus one, the high 32 bits hold the
// slot's generation at insert time. Handle 0 is reserved and always invalid.
type Handle uint64

func makeHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index+1))
}

// Index returns the slot index, or -1 for the zero handle.
func (h Handle) Index() int {
	return int(uint32(h)) - 1
}

// Generation returns the slot generation encoded in the handle.
func (h Handle) Generation() uint32 {
	return uint32(h >> 32)
}

// Event types for slot lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

// Event represents a slot lifecycle event.
type Event struct {
	Handle Handle
	Live   int // live slots after the event
	Type   EventType
}

// Observer receives notifications about slot lifecycle events.
// Observers are called with the table lock released, possibly from
// several goroutines at once.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}
