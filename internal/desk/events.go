package desk

import (
	"sync"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/types"
)

type EventType string

const (
	EventOrderPlaced       EventType = "order.placed"
	EventOrderFilled       EventType = "order.filled"
	EventRefreshCompleted  EventType = "refresh.completed"
	EventInstrumentAdded   EventType = "instrument.added"
	EventInstrumentRemoved EventType = "instrument.removed"
	EventStateChanged      EventType = "state.changed"
)

// Event is a notification delivered to listeners after the desk state changed.
type Event struct {
	Type          EventType      `json:"type"`
	At            time.Time      `json:"at"`
	InstrumentKey string         `json:"instrument_key,omitempty"`
	Order         *types.Order   `json:"order,omitempty"`
	Refresh       *RefreshDigest `json:"refresh,omitempty"`
	Status        Status         `json:"status,omitempty"`
}

// Listener receives events synchronously; it must not block or call back into the desk.
type Listener func(Event)

type listeners struct {
	mu    sync.RWMutex
	next  int
	funcs map[int]Listener
}

func newListeners() *listeners {
	return &listeners{
		mu:    sync.RWMutex{},
		next:  0,
		funcs: make(map[int]Listener),
	}
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.next
	l.next++
	l.funcs[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		delete(l.funcs, id)
	}
}

func (l *listeners) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

	l.mu.RLock()
	funcs := make([]Listener, 0, len(l.funcs))
	for _, fn := range l.funcs {
		funcs = append(funcs, fn)
	}
	l.mu.RUnlock()

	for _, ev := range events {
		for _, fn := range funcs {
			fn(ev)
		}
	}
}

// Subscribe registers fn and returns a function that unregisters it.
func (d *Desk) Subscribe(fn Listener) func() {
	return d.listeners.add(fn)
}

func (d *Desk) orderEvent(key string, order types.Order) Event {
	typ := EventOrderPlaced
	if order.Status == types.OrderStatusFilled {
		typ = EventOrderFilled
	}

	o := order.Clone()

	return Event{
		Type:          typ,
		At:            d.clock.Now(),
		InstrumentKey: key,
		Order:         &o,
		Refresh:       nil,
		Status:        "",
	}
}
