// Package store holds the session's person records in memory and notifies
// listeners after every change. When a slot is configured the collection is
// written through to it after each mutation.
package store

import (
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/zarlcorp/zpeople/internal/person"
)

// errBuffer bounds undelivered write-through failures.
const errBuffer = 8

var (
	// ErrNotFound is returned when no record has the requested identifier.
	ErrNotFound = errors.New("person not found")

	// ErrNotHydrated is returned by mutators of a persisted store before
	// Hydrate has run.
	ErrNotHydrated = errors.New("store not hydrated")
)

// PersistenceError reports a failed read or write of the persisted slot.
// The in-memory collection is unaffected.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persist " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Slot is a single persisted value. Load returns nil data when the slot
// has never been written.
type Slot interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// Kind names the change an Event describes.
type Kind int

const (
	Hydrated Kind = iota
	Added
	Edited
	Deleted
	Depersonalized
)

func (k Kind) String() string {
	switch k {
	case Hydrated:
		return "hydrated"
	case Added:
		return "added"
	case Edited:
		return "edited"
	case Deleted:
		return "deleted"
	case Depersonalized:
		return "depersonalized"
	}
	return "unknown"
}

// Event is delivered to listeners after a change. Persons is a copy of
// the full collection after the change.
type Event struct {
	Kind    Kind
	ID      string
	Persons []person.Person
}

// Listener receives events synchronously, in registration order.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithSlot persists the collection to slot. The store must be hydrated
// before it accepts mutations.
func WithSlot(slot Slot) Option {
	return func(s *Store) { s.slot = slot }
}

// WithLogger sets the logger used for events and persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithIDFunc replaces the identifier generator.
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// Store is the observable record collection.
type Store struct {
	mu        sync.Mutex
	persons   []person.Person
	rev       uint64 // bumped by every mutation, guarded by mu
	listeners []subscription
	nextSub   int
	slot      Slot
	hydrated  bool
	closed    bool
	errs      chan error
	newID     func() string
	log       *slog.Logger

	// persistMu serializes write-through; saved is the newest revision in
	// the slot.
	persistMu sync.Mutex
	saved     uint64
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		errs:  make(chan error, errBuffer),
		newID: person.NewID,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	// without a slot there is nothing to load
	s.hydrated = s.slot == nil
	return s
}

// Hydrate replaces the collection with the persisted snapshot. An absent
// slot yields an empty collection. A slot that cannot be read or decoded
// also yields an empty collection and a *PersistenceError; the store is
// usable either way.
func (s *Store) Hydrate() error {
	var (
		loaded []person.Person
		perr   error
	)

	if s.slot != nil {
		data, err := s.slot.Load()
		switch {
		case err != nil:
			perr = &PersistenceError{Op: "load", Err: err}
		case data != nil:
			ps, err := decodeSnapshot(data)
			if err != nil {
				perr = &PersistenceError{Op: "decode", Err: err}
			} else {
				loaded = ps
			}
		}
	}

	if perr != nil {
		s.log.Warn("hydrate", "err", perr)
	}

	s.persistMu.Lock()
	s.mu.Lock()
	s.persons = uniqueRecords(s.log, loaded)
	s.hydrated = true
	s.rev++
	s.saved = s.rev
	ev, subs := s.eventLocked(Hydrated, "")
	s.mu.Unlock()
	s.persistMu.Unlock()

	s.notify(ev, subs)
	return perr
}

// Hydrated reports whether the store accepts mutations.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Add appends a new record built from d with a fresh identifier and
// returns it. Add does not validate d.
func (s *Store) Add(d person.Details) (person.Person, error) {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return person.Person{}, ErrNotHydrated
	}

	p := person.Person{ID: s.uniqueIDLocked(), Details: d.Clone()}
	s.persons = append(s.persons, p)
	ev, subs := s.eventLocked(Added, p.ID)
	s.mu.Unlock()

	s.commit(ev, subs)
	return p.Clone(), nil
}

// Edit replaces the record with p.ID in place. Every field except the
// identifier comes from p.
func (s *Store) Edit(p person.Person) error {
	return s.replace(Edited, p.ID, func(person.Person) person.Person {
		return p.Clone()
	})
}

// Delete removes the record with the given identifier.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return ErrNotHydrated
	}

	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	s.persons = slices.Delete(s.persons, i, i+1)
	ev, subs := s.eventLocked(Deleted, id)
	s.mu.Unlock()

	s.commit(ev, subs)
	return nil
}

// Depersonalize blanks every identifying field of the record and empties
// its address list. The identifier is kept. Applying it twice has the same
// result as applying it once.
func (s *Store) Depersonalize(id string) error {
	return s.replace(Depersonalized, id, person.Person.Depersonalized)
}

// Get returns a copy of the record with the given identifier.
func (s *Store) Get(id string) (person.Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return person.Person{}, ErrNotFound
	}
	return s.persons[i].Clone(), nil
}

// Persons returns a copy of the collection in insertion order.
func (s *Store) Persons() []person.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persons)
}

// Subscribe registers fn for change events and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners = slices.DeleteFunc(s.listeners, func(sub subscription) bool {
			return sub.id == id
		})
	}
}

// Errors delivers write-through failures as *PersistenceError values.
// Failures that find the channel full are logged and dropped.
func (s *Store) Errors() <-chan error {
	return s.errs
}

// Close removes all listeners and closes the Errors channel.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.listeners = nil
	close(s.errs)
	return nil
}

func (s *Store) replace(kind Kind, id string, fn func(person.Person) person.Person) error {
	s.mu.Lock()
	if !s.hydrated {
		s.mu.Unlock()
		return ErrNotHydrated
	}

	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	next := fn(s.persons[i])
	next.ID = id
	s.persons[i] = next
	ev, subs := s.eventLocked(kind, id)
	s.mu.Unlock()

	s.commit(ev, subs)
	return nil
}

// commit notifies listeners, then writes the collection through. A write
// failure is reported on the Errors channel and never undoes the change.
func (s *Store) commit(ev Event, subs []subscription) {
	s.log.Debug("store change", "kind", ev.Kind, "id", ev.ID, "count", len(ev.Persons))
	s.notify(ev, subs)

	if s.slot != nil {
		s.persist()
	}
}

// persist saves the current collection unless a save of the same or a
// newer revision already happened. Listeners that mutate the store and
// mutators on other goroutines all end with the newest state in the slot.
func (s *Store) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	rev := s.rev
	ps := s.copyLocked()
	s.mu.Unlock()

	if rev <= s.saved {
		return
	}

	data, err := encodeSnapshot(ps)
	if err != nil {
		s.report(&PersistenceError{Op: "encode", Err: err})
		return
	}
	if err := s.slot.Save(data); err != nil {
		s.report(&PersistenceError{Op: "save", Err: err})
		return
	}
	s.saved = rev
}

func (s *Store) notify(ev Event, subs []subscription) {
	for _, sub := range subs {
		sub.fn(ev)
	}
}

func (s *Store) report(err error) {
	s.log.Warn("write-through", "err", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.errs <- err:
	default:
		s.log.Warn("write-through error dropped", "err", err)
	}
}

func (s *Store) eventLocked(kind Kind, id string) (Event, []subscription) {
	if kind != Hydrated {
		s.rev++
	}
	ev := Event{Kind: kind, ID: id, Persons: s.copyLocked()}
	return ev, slices.Clone(s.listeners)
}

func (s *Store) copyLocked() []person.Person {
	out := make([]person.Person, len(s.persons))
	for i, p := range s.persons {
		out[i] = p.Clone()
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.persons, func(p person.Person) bool {
		return p.ID == id
	})
}

func (s *Store) uniqueIDLocked() string {
	for {
		id := s.newID()
		if id != "" && s.indexLocked(id) < 0 {
			return id
		}
	}
}
