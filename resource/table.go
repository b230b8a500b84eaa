package resource

import (
	"sync"
)

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Table maps generation-checked handles to values. It is safe for concurrent
// use: values are typically inserted on one goroutine and removed from
// another (for example a native completion thread).
type Table[T any] struct {
	slots     []slot[T]
	freeList  []uint32
	observers map[int]Observer
	nextObsID int
	live      int
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty table.
func NewTable[T any]() *Table[T] {
	return &Table[T]{
		slots:     make([]slot[T], 0, 64),
		freeList:  make([]uint32, 0, 16),
		observers: make(map[int]Observer),
	}
}

// Insert stores a value and returns its handle.
// It returns 0 once the table has been closed.
func (t *Table[T]) Insert(value T) Handle {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0
	}

	var idx uint32
	if n := len(t.freeList); n > 0 {
		idx = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		t.slots = append(t.slots, slot[T]{generation: 1})
		idx = uint32(len(t.slots) - 1)
	}

	s := &t.slots[idx]
	s.value = value
	s.live = true
	t.live++
	h := makeHandle(idx, s.generation)
	live := t.live
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, Live: live})
	return h
}

// lookup returns the live slot for h. Caller must hold t.mu.
func (t *Table[T]) lookup(h Handle) *slot[T] {
	idx := h.Index()
	if idx < 0 || idx >= len(t.slots) {
		return nil
	}
	s := &t.slots[idx]
	if !s.live || s.generation != h.Generation() {
		return nil
	}
	return s
}

// Get retrieves a value by handle.
func (t *Table[T]) Get(h Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s := t.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Remove drops a slot and returns its value. Only the first Remove for a
// handle succeeds; the slot's generation is bumped so the handle, and any
// copy of it, never resolves again even after the slot is reused.
func (t *Table[T]) Remove(h Handle) (T, bool) {
	var zero T

	t.mu.Lock()
	s := t.lookup(h)
	if s == nil {
		t.mu.Unlock()
		return zero, false
	}

	value := s.value
	s.value = zero
	s.live = false
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	t.freeList = append(t.freeList, uint32(h.Index()))
	t.live--
	live := t.live
	t.mu.Unlock()

	t.notify(Event{Type: EventDropped, Handle: h, Live: live})
	return value, true
}

// Len returns the number of live slots.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Each calls fn for every live slot until fn returns false.
// fn runs without the table lock held, over a snapshot.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	type pair struct {
		v T
		h Handle
	}

	t.mu.Lock()
	snapshot := make([]pair, 0, t.live)
	for i := range t.slots {
		s := &t.slots[i]
		if s.live {
			snapshot = append(snapshot, pair{h: makeHandle(uint32(i), s.generation), v: s.value})
		}
	}
	t.mu.Unlock()

	for _, p := range snapshot {
		if !fn(p.h, p.v) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it.
func (t *Table[T]) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	id := t.nextObsID
	t.nextObsID++
	t.observers[id] = o
	t.obsMu.Unlock()

	return func() {
		t.obsMu.Lock()
		delete(t.observers, id)
		t.obsMu.Unlock()
	}
}

// Close stops accepting inserts. Live slots stay resolvable so in-flight
// work can still be completed and removed.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
