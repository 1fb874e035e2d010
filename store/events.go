package store

import "sync"

// EventKind classifies store events.
type EventKind int

const (
	// RecordsChanged fires after materialization creates or updates
	// records of one type.
	RecordsChanged EventKind = iota
	// StoreCleared fires after UnloadAll empties the identity map.
	StoreCleared
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case RecordsChanged:
		return "records_changed"
	case StoreCleared:
		return "store_cleared"
	default:
		return "unknown"
	}
}

// Event describes one observable store change. Type and IDs are set for
// RecordsChanged and empty for StoreCleared.
type Event struct {
	Kind EventKind
	Type string
	IDs  []string
}

// observers is the subscription fan-out behind the store façade. The core
// materialization path has no dependency on it; events fire only at the
// façade boundary, after an operation completes.
type observers struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func newObservers() *observers {
	return &observers{subs: make(map[int]func(Event))}
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.next
	o.next++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// notify invokes every subscriber synchronously, on the caller's
// goroutine. Subscribers that need to do real work should hand the event
// off themselves.
func (o *observers) notify(ev Event) {
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
