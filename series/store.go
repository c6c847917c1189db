// Package series implements the bounded sliding-window time store for
// parsed measurements
package series

import (
	"sync"

	bg "github.com/SSSOCPaulCote/blunderguard"
	"github.com/SSSOCPaulCote/gux"
	"github.com/splotd/splotd/parser"
)

const (
	ErrInvalidCapacity = bg.Error("window capacity must be a positive integer")

	// DefaultWindowSize is the number of ticks retained per series when no
	// capacity is configured
	DefaultWindowSize = 100
)

// Datum is one slot of a series: either a sampled value or an explicit
// missing marker for a tick where the measurement did not appear
type Datum struct {
	Value float64
	Valid bool
}

// Snapshot is a consistent, fully copied view of the store. Ticks holds the
// retained global tick indices. A column may be shorter than Ticks when its
// name first appeared after the oldest retained tick; columns align with the
// tail of Ticks
type Snapshot struct {
	Ticks   []uint64
	Names   []string
	Columns map[string][]Datum
}

// Store keeps one bounded history per measurement name. All series advance
// in lockstep on a shared tick counter: a name absent from the current batch
// receives a missing marker. Once a series reaches the window capacity, each
// append evicts its oldest slot
type Store struct {
	mu         sync.RWMutex
	capacity   int
	tick       uint64
	names      []string
	columns    map[string][]Datum
	ticks      []uint64
	stateStore *gux.Store
}

// NewStore creates a Store with the given window capacity. The capacity is
// immutable for the lifetime of the store. The gux store receives one
// live-data action per mutating operation and may be nil
func NewStore(capacity int, stateStore *gux.Store) (*Store, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Store{
		capacity:   capacity,
		columns:    make(map[string][]Datum),
		stateStore: stateStore,
	}, nil
}

// Capacity returns the configured window capacity
func (s *Store) Capacity() int {
	return s.capacity
}

// Tick returns the current value of the global tick counter
func (s *Store) Tick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// Update applies one parsed batch to the store: the global tick advances,
// every name in the batch is appended to its series (unseen names start a
// fresh series), and every tracked name absent from the batch receives a
// missing marker so all series stay tick-aligned
func (s *Store) Update(batch parser.Batch) {
	s.mu.Lock()
	s.tick++
	s.ticks = append(s.ticks, s.tick)
	if len(s.ticks) > s.capacity {
		s.ticks = s.ticks[1:]
	}
	inBatch := make(map[string]struct{})
	for _, name := range batch.Names() {
		inBatch[name] = struct{}{}
		value, _ := batch.Get(name)
		if _, ok := s.columns[name]; !ok {
			s.names = append(s.names, name)
			s.columns[name] = make([]Datum, 0, s.capacity)
		}
		s.columns[name] = s.appendDatum(s.columns[name], Datum{Value: value, Valid: true})
	}
	for _, name := range s.names {
		if _, ok := inBatch[name]; !ok {
			s.columns[name] = s.appendDatum(s.columns[name], Datum{})
		}
	}
	tick := s.tick
	s.mu.Unlock()
	s.notify(tick, batch.Names())
}

// appendDatum appends one slot, evicting the oldest once the window is full
func (s *Store) appendDatum(column []Datum, d Datum) []Datum {
	column = append(column, d)
	if len(column) > s.capacity {
		column = column[1:]
	}
	return column
}

// Snapshot returns a deep copy of the retained window. It never observes a
// partially applied update
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Ticks:   make([]uint64, len(s.ticks)),
		Names:   make([]string, len(s.names)),
		Columns: make(map[string][]Datum, len(s.columns)),
	}
	copy(snap.Ticks, s.ticks)
	copy(snap.Names, s.names)
	for name, column := range s.columns {
		c := make([]Datum, len(column))
		copy(c, column)
		snap.Columns[name] = c
	}
	return snap
}

// Clear empties every series and rewinds the tick counter but keeps the set
// of known names: the next update appends a fresh slot to each of them
func (s *Store) Clear() {
	s.mu.Lock()
	s.tick = 0
	s.ticks = nil
	for name := range s.columns {
		s.columns[name] = make([]Datum, 0, s.capacity)
	}
	s.mu.Unlock()
	s.notify(0, nil)
}

// Reset returns the store to its initial empty state, forgetting known names
func (s *Store) Reset() {
	s.mu.Lock()
	s.tick = 0
	s.ticks = nil
	s.names = nil
	s.columns = make(map[string][]Datum)
	s.mu.Unlock()
	s.notify(0, nil)
}

// notify dispatches one live-data action per mutating operation
func (s *Store) notify(tick uint64, names []string) {
	if s.stateStore == nil {
		return
	}
	_ = s.stateStore.Dispatch(gux.Action{
		Type: "rtd/update",
		Payload: LiveData{
			Tick:  tick,
			Names: names,
		},
	})
}
