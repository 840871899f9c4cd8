// Package feed fans committed row changes out to the subscribers of the
// same user.
package feed

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/dmitrijs2005/todosync/internal/server/models"
	"github.com/google/uuid"
)

// SubscriberBuffer is how many events a subscriber may lag behind before it
// is dropped.
const SubscriberBuffer = 256

type subscriber struct {
	userID string
	ch     chan models.ChangeEvent
}

// Broker is an in-process pub/sub keyed by user id. Publish never blocks:
// a subscriber whose buffer is full is disconnected, and its client
// recovers through the catch-up pull of the next session.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]*subscriber
	logger logging.Logger
}

func NewBroker(logger logging.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]*subscriber),
		logger: logger.With("module", "feed"),
	}
}

// Subscribe registers a subscriber for userID. The channel is closed when
// cancel is called or the subscriber is dropped for being too slow.
func (b *Broker) Subscribe(userID string) (events <-chan models.ChangeEvent, cancel func()) {
	id := uuid.NewString()
	s := &subscriber{userID: userID, ch: make(chan models.ChangeEvent, SubscriberBuffer)}

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	b.logger.Debug(context.Background(), "subscribed", "subscriber", id, "user", userID)
	return s.ch, func() { b.remove(id) }
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// Publish delivers ev to every subscriber of ev.UserID.
func (b *Broker) Publish(ev models.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range b.subs {
		if s.userID != ev.UserID {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			delete(b.subs, id)
			close(s.ch)
			b.logger.Warn(context.Background(), "slow subscriber dropped", "subscriber", id, "user", s.userID)
		}
	}
}

// Len returns the number of live subscribers.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
