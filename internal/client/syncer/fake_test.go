package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/client"
	"github.com/dmitrijs2005/todosync/internal/client/models"
)

// fakeRemote is an in-memory remote data service with the same row rules
// as the real server: insert is an upsert, update and upsert keep the newer
// row, delete is idempotent.
type fakeRemote struct {
	mu      sync.Mutex
	rows    map[string]models.Todo
	counter int64
	down    bool
	loseAck int

	insertGate chan struct{}
	updateGate chan struct{}

	inserts, updates, deletes, selects int
	lastSince                          time.Time

	subs []*fakeSub
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: make(map[string]models.Todo)}
}

func (r *fakeRemote) setDown(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.down = v
}

func (r *fakeRemote) row(id string) (models.Todo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	return t, ok
}

func (r *fakeRemote) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

func (r *fakeRemote) stats() (inserts, updates, deletes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts, r.updates, r.deletes
}

// put stores a row written by another device and publishes the event.
func (r *fakeRemote) put(t models.Todo, device string) {
	r.mu.Lock()
	_, existed := r.rows[t.ID]
	r.counter++
	t.Counter = r.counter
	r.rows[t.ID] = t
	subs := append([]*fakeSub(nil), r.subs...)
	r.mu.Unlock()

	kind := models.EventInsert
	if existed {
		kind = models.EventUpdate
	}
	for _, s := range subs {
		s.send(models.RemoteEvent{Kind: kind, ID: t.ID, Todo: &t, SourceDevice: device})
	}
}

// remove deletes a row behind everybody's back (no event).
func (r *fakeRemote) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
}

// breakFeeds makes every open subscription fail.
func (r *fakeRemote) breakFeeds() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()
	for _, s := range subs {
		s.fail()
	}
}

func (r *fakeRemote) subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *fakeRemote) Close() error { return nil }

func (r *fakeRemote) Ping(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return client.ErrUnavailable
	}
	return nil
}

func (r *fakeRemote) Select(ctx context.Context, since time.Time) ([]models.Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, client.ErrUnavailable
	}
	r.selects++
	r.lastSince = since

	var out []models.Todo
	for _, t := range r.rows {
		if t.UpdatedAt.After(since) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeRemote) wait(gate chan struct{}) {
	if gate != nil {
		<-gate
	}
}

func (r *fakeRemote) Insert(ctx context.Context, t models.Todo) (models.Todo, error) {
	r.mu.Lock()
	gate := r.insertGate
	r.mu.Unlock()
	r.wait(gate)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return models.Todo{}, client.ErrUnavailable
	}
	r.inserts++

	cur, ok := r.rows[t.ID]
	if !ok || !cur.UpdatedAt.After(t.UpdatedAt) {
		r.counter++
		if ok {
			t.Counter = cur.Counter
		} else {
			t.Counter = r.counter
		}
		r.rows[t.ID] = t
		cur = t
	}
	if r.loseAck > 0 {
		r.loseAck--
		return models.Todo{}, client.ErrUnavailable
	}
	return cur, nil
}

func (r *fakeRemote) Update(ctx context.Context, t models.Todo) (models.Todo, error) {
	r.mu.Lock()
	gate := r.updateGate
	r.mu.Unlock()
	r.wait(gate)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return models.Todo{}, client.ErrUnavailable
	}
	r.updates++

	cur, ok := r.rows[t.ID]
	if !ok {
		return models.Todo{}, client.ErrNotFound
	}
	if !cur.UpdatedAt.After(t.UpdatedAt) {
		t.Counter = cur.Counter
		r.rows[t.ID] = t
		cur = t
	}
	if r.loseAck > 0 {
		r.loseAck--
		return models.Todo{}, client.ErrUnavailable
	}
	return cur, nil
}

func (r *fakeRemote) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return client.ErrUnavailable
	}
	r.deletes++
	delete(r.rows, id)
	return nil
}

func (r *fakeRemote) Subscribe(ctx context.Context) (client.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, client.ErrUnavailable
	}
	s := &fakeSub{events: make(chan models.RemoteEvent, 64), broken: make(chan struct{})}
	r.subs = append(r.subs, s)
	return s, nil
}

type fakeSub struct {
	events chan models.RemoteEvent
	broken chan struct{}
	once   sync.Once
}

func (s *fakeSub) send(ev models.RemoteEvent) {
	select {
	case s.events <- ev:
	case <-s.broken:
	}
}

func (s *fakeSub) fail() { s.once.Do(func() { close(s.broken) }) }

func (s *fakeSub) Recv(ctx context.Context) (models.RemoteEvent, error) {
	select {
	case ev := <-s.events:
		return ev, nil
	case <-s.broken:
		return models.RemoteEvent{}, client.ErrFeedClosed
	case <-ctx.Done():
		return models.RemoteEvent{}, ctx.Err()
	}
}

func (s *fakeSub) Close() error {
	s.fail()
	return nil
}

// stepClock advances by one millisecond on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}
