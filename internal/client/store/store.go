// Package store is the in-memory observable todo collection.
//
// Every write commits under a lock and then notifies observers outside it,
// in commit order. Whole-collection observers are registered with Subscribe,
// per-item observers with SubscribeID. A write made from inside an observer
// is committed immediately and its notification is delivered after the
// current observer returns.
package store

import (
	"sort"
	"sync"

	"github.com/dmitrijs2005/todosync/internal/client/models"
)

// Observer receives committed changes.
type Observer func(models.Change)

// Mutation is what an Update callback decided to do with the entry.
type Mutation int

const (
	Skip Mutation = iota
	Put
	Remove
)

type Store struct {
	mu    sync.RWMutex
	items map[string]models.Todo

	obsMu   sync.Mutex
	nextObs int
	all     map[int]Observer
	byID    map[string]map[int]Observer

	qMu      sync.Mutex
	queue    []models.Change
	draining bool
}

func New() *Store {
	return &Store{
		items: make(map[string]models.Todo),
		all:   make(map[int]Observer),
		byID:  make(map[string]map[int]Observer),
	}
}

// Get returns a copy of the whole collection keyed by id.
func (s *Store) Get() map[string]models.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Todo, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

func (s *Store) Lookup(id string) (models.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.items[id]
	return t, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Active returns the non-deleted items, oldest first.
func (s *Store) Active() []models.Todo {
	s.mu.RLock()
	out := make([]models.Todo, 0, len(s.items))
	for _, t := range s.items {
		if t.Active() {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()

	SortByCreated(out)
	return out
}

// SortByCreated orders todos by creation time, then id.
func SortByCreated(todos []models.Todo) {
	sort.Slice(todos, func(i, j int) bool {
		if !todos[i].CreatedAt.Equal(todos[j].CreatedAt) {
			return todos[i].CreatedAt.Before(todos[j].CreatedAt)
		}
		return todos[i].ID < todos[j].ID
	})
}

// Set merges p into the entry for id, creating it if absent, and returns
// the committed value.
func (s *Store) Set(id string, p models.Patch, origin models.Origin) models.Todo {
	s.mu.Lock()
	before, existed := s.items[id]
	after := p.Apply(before)
	after.ID = id
	s.items[id] = after
	s.enqueue(change(id, before, existed, &after, origin))
	s.mu.Unlock()

	s.drain()
	return after
}

// Assign replaces the entry for t.ID with t.
func (s *Store) Assign(t models.Todo, origin models.Origin) {
	s.mu.Lock()
	before, existed := s.items[t.ID]
	s.items[t.ID] = t
	s.enqueue(change(t.ID, before, existed, &t, origin))
	s.mu.Unlock()

	s.drain()
}

// Delete removes id. It reports whether the key existed; removing a missing
// key notifies nobody.
func (s *Store) Delete(id string, origin models.Origin) bool {
	s.mu.Lock()
	before, existed := s.items[id]
	if !existed {
		s.mu.Unlock()
		return false
	}
	delete(s.items, id)
	s.enqueue(change(id, before, true, nil, origin))
	s.mu.Unlock()

	s.drain()
	return true
}

// Update evaluates fn against the current entry and applies its decision
// atomically. fn runs with the store locked and must not call back into the
// store.
func (s *Store) Update(id string, fn func(cur models.Todo, ok bool) (models.Todo, Mutation), origin models.Origin) (models.Todo, Mutation) {
	s.mu.Lock()
	before, existed := s.items[id]
	next, m := fn(before, existed)

	switch {
	case m == Put:
		next.ID = id
		s.items[id] = next
		s.enqueue(change(id, before, existed, &next, origin))
	case m == Remove && existed:
		delete(s.items, id)
		s.enqueue(change(id, before, true, nil, origin))
	default:
		s.mu.Unlock()
		return before, Skip
	}
	s.mu.Unlock()

	s.drain()
	return next, m
}

// Replace swaps the whole collection, notifying one change per added,
// updated or removed key.
func (s *Store) Replace(todos map[string]models.Todo, origin models.Origin) {
	s.mu.Lock()
	changes := make([]models.Change, 0, len(todos))
	for id, before := range s.items {
		if _, ok := todos[id]; !ok {
			delete(s.items, id)
			changes = append(changes, change(id, before, true, nil, origin))
		}
	}
	for id, t := range todos {
		t.ID = id
		before, existed := s.items[id]
		if existed && before == t {
			continue
		}
		s.items[id] = t
		changes = append(changes, change(id, before, existed, &t, origin))
	}
	s.enqueue(changes...)
	s.mu.Unlock()

	s.drain()
}

// Subscribe registers fn for every change. The returned func unregisters it.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	n := s.nextObs
	s.nextObs++
	s.all[n] = fn

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.all, n)
	}
}

// SubscribeID registers fn for changes of a single id.
func (s *Store) SubscribeID(id string, fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	n := s.nextObs
	s.nextObs++
	if s.byID[id] == nil {
		s.byID[id] = make(map[int]Observer)
	}
	s.byID[id][n] = fn

	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.byID[id], n)
		if len(s.byID[id]) == 0 {
			delete(s.byID, id)
		}
	}
}

func change(id string, before models.Todo, existed bool, after *models.Todo, origin models.Origin) models.Change {
	ch := models.Change{ID: id, Origin: origin}
	if existed {
		b := before
		ch.Before = &b
	}
	if after != nil {
		a := *after
		ch.After = &a
	}
	return ch
}

// enqueue appends changes to the delivery queue. Callers hold mu, so the
// queue order is the commit order.
func (s *Store) enqueue(changes ...models.Change) {
	if len(changes) == 0 {
		return
	}
	s.qMu.Lock()
	s.queue = append(s.queue, changes...)
	s.qMu.Unlock()
}

// drain delivers queued changes unless another goroutine already is. It
// must be called without mu held.
func (s *Store) drain() {
	s.qMu.Lock()
	if s.draining {
		s.qMu.Unlock()
		return
	}
	s.draining = true

	for len(s.queue) > 0 {
		ch := s.queue[0]
		s.queue = s.queue[1:]
		s.qMu.Unlock()

		s.deliver(ch)

		s.qMu.Lock()
	}
	s.draining = false
	s.qMu.Unlock()
}

func (s *Store) deliver(ch models.Change) {
	s.obsMu.Lock()
	targets := make([]Observer, 0, len(s.all)+len(s.byID[ch.ID]))
	for _, fn := range s.all {
		targets = append(targets, fn)
	}
	for _, fn := range s.byID[ch.ID] {
		targets = append(targets, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range targets {
		fn(ch)
	}
}
