package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/todosync/internal/client/client"
	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/repositories/kv"
	"github.com/dmitrijs2005/todosync/internal/client/store"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/sethvargo/go-retry"
)

// Mode is the engine's view of connectivity.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// persistTimeout bounds a single snapshot write.
const persistTimeout = 10 * time.Second

type Config struct {
	DeviceID            string
	OnlineCheckInterval time.Duration
	BackoffBase         time.Duration
	BackoffCap          time.Duration
	JitterPercent       uint64
}

func (c Config) withDefaults() Config {
	if c.OnlineCheckInterval <= 0 {
		c.OnlineCheckInterval = 3 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.JitterPercent == 0 {
		c.JitterPercent = 20
	}
	return c
}

// Status is a point-in-time summary for the render layer.
type Status struct {
	Mode      Mode
	DeviceID  string
	Cursor    time.Time
	Pending   int
	LastError string
	LastSync  time.Time
}

type Engine struct {
	cfg    Config
	store  *store.Store
	remote client.Client
	feed   client.Subscriber
	repo   kv.Repository
	logger logging.Logger
	now    func() time.Time

	outbox *outbox

	// mergeMu serializes every write of remote data into the store.
	mergeMu sync.Mutex
	// pushMu serializes outbox flushes.
	pushMu sync.Mutex
	// persistMu orders snapshot writes.
	persistMu sync.Mutex

	stateMu  sync.Mutex
	cursor   time.Time
	purged   map[string]time.Time
	mode     Mode
	lastErr  error
	lastSync time.Time

	kick        chan struct{}
	unsubscribe func()

	// snapshot writer, alive from New until Close
	persistKick chan struct{}
	writerStop  chan struct{}
	writerDone  chan struct{}
	closeOnce   sync.Once
	// set when the stored snapshot could not be read; writing would
	// replace data this engine never saw
	persistOff atomic.Bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires an engine to st. Local-origin changes are recorded from this
// point on, even before Start.
func New(st *store.Store, remote client.Client, feed client.Subscriber, repo kv.Repository, logger logging.Logger, cfg Config) *Engine {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		store:  st,
		remote: remote,
		feed:   feed,
		repo:   repo,
		logger: logger.With("module", "syncer", "device", cfg.DeviceID),
		now:    func() time.Time { return time.Now().UTC() },
		purged: make(map[string]time.Time),
		mode:   ModeOffline,
		kick:   make(chan struct{}, 1),

		persistKick: make(chan struct{}, 1),
		writerStop:  make(chan struct{}),
		writerDone:  make(chan struct{}),
	}
	e.outbox = newOutbox(e.now)
	e.unsubscribe = st.Subscribe(e.onChange)
	go e.snapshotWriter()
	return e
}

// Close stops the engine, detaches it from the store and writes a final
// snapshot.
func (e *Engine) Close() {
	e.Stop()
	e.closeOnce.Do(func() {
		if e.unsubscribe != nil {
			e.unsubscribe()
		}
		close(e.writerStop)
		<-e.writerDone

		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		e.persist(ctx)
	})
}

// Bootstrap loads the persisted snapshot into the store and the outbox. A
// missing or unreadable snapshot is not an error: the store starts empty
// and the next pull repopulates it. Only a failing read of the repository
// is returned.
func (e *Engine) Bootstrap(ctx context.Context) error {
	snap, err := loadSnapshot(ctx, e.repo)
	if errors.Is(err, ErrSnapshotCorrupt) || errors.Is(err, ErrSnapshotVersion) {
		e.logger.Warn(ctx, "snapshot discarded, starting empty", "error", err)
		return nil
	}
	if err != nil {
		e.persistOff.Store(true)
		return err
	}
	if snap == nil {
		e.logger.Info(ctx, "no snapshot, starting empty")
		return nil
	}

	e.mergeMu.Lock()
	e.outbox.restore(snap.Outbox)
	e.stateMu.Lock()
	e.cursor = snap.Cursor
	e.purged = make(map[string]time.Time, len(snap.Purged))
	for id, at := range snap.Purged {
		e.purged[id] = at
	}
	e.stateMu.Unlock()

	todos := snap.Todos
	if todos == nil {
		todos = map[string]models.Todo{}
	}
	e.store.Replace(todos, models.OriginBootstrap)
	e.mergeMu.Unlock()

	e.logger.Info(ctx, "snapshot loaded", "todos", len(todos), "pending", len(snap.Outbox), "cursor", snap.Cursor)
	return nil
}

// Start launches the session loop, the push worker and the online watcher.
// A running engine is stopped first.
func (e *Engine) Start(ctx context.Context) {
	e.Stop()

	e.runMu.Lock()
	defer e.runMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		e.runSessions(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.pushLoop(ctx)
	}()
	go func() {
		defer e.wg.Done()
		e.watchOnline(ctx)
	}()

	if e.outbox.len() > 0 {
		e.kickPush()
	}
}

// Stop cancels background work and waits for it to finish.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.wg.Wait()
}

func (e *Engine) Mode() Mode {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.mode
}

func (e *Engine) Cursor() time.Time {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.cursor
}

// Pending returns the outbox, oldest first.
func (e *Engine) Pending() []models.PendingOp {
	return e.outbox.list()
}

func (e *Engine) Status() Status {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	st := Status{
		Mode:     e.mode,
		DeviceID: e.cfg.DeviceID,
		Cursor:   e.cursor,
		Pending:  e.outbox.len(),
		LastSync: e.lastSync,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}

// Sync pulls and then flushes the outbox once, without retrying.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.Pull(ctx); err != nil {
		return err
	}
	return e.Flush(ctx)
}

// onChange runs synchronously after every committed store write.
func (e *Engine) onChange(ch models.Change) {
	if ch.Origin != models.OriginLocal {
		return
	}

	e.outbox.record(ch)
	if ch.Removed() {
		e.stateMu.Lock()
		e.purged[ch.ID] = time.Time{}
		e.stateMu.Unlock()
	}

	e.schedulePersist()
	e.kickPush()
}

// schedulePersist asks the snapshot writer for a write. Requests made
// while a write is queued are coalesced into it.
func (e *Engine) schedulePersist() {
	select {
	case e.persistKick <- struct{}{}:
	default:
	}
}

func (e *Engine) snapshotWriter() {
	defer close(e.writerDone)
	for {
		select {
		case <-e.writerStop:
			return
		case <-e.persistKick:
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			e.persist(ctx)
			cancel()
		}
	}
}

func (e *Engine) kickPush() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// persist writes the snapshot. Failures are logged and otherwise ignored.
func (e *Engine) persist(ctx context.Context) {
	if e.persistOff.Load() {
		return
	}
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.stateMu.Lock()
	snap := &snapshot{
		Cursor: e.cursor,
		Purged: make(map[string]time.Time, len(e.purged)),
	}
	for id, at := range e.purged {
		snap.Purged[id] = at
	}
	e.stateMu.Unlock()

	snap.Todos = e.store.Get()
	snap.Outbox = e.outbox.list()

	if err := saveSnapshot(ctx, e.repo, snap); err != nil {
		e.logger.Warn(ctx, "snapshot not saved", "error", err)
	}
}

func (e *Engine) setMode(ctx context.Context, m Mode) {
	e.stateMu.Lock()
	prev := e.mode
	e.mode = m
	e.stateMu.Unlock()

	if prev != m {
		e.logger.Info(ctx, "connectivity changed", "mode", m)
		if m == ModeOnline {
			e.kickPush()
		}
	}
}

func (e *Engine) setErr(err error) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.lastErr = err
}

func (e *Engine) noteFailure(ctx context.Context, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	e.setErr(err)
	if errors.Is(err, client.ErrUnavailable) || errors.Is(err, client.ErrFeedClosed) {
		e.setMode(ctx, ModeOffline)
	}
}

func (e *Engine) newBackoff() retry.Backoff {
	b := retry.NewExponential(e.cfg.BackoffBase)
	b = retry.WithCappedDuration(e.cfg.BackoffCap, b)
	return retry.WithJitterPercent(e.cfg.JitterPercent, b)
}

// watchOnline pings the server every OnlineCheckInterval.
func (e *Engine) watchOnline(ctx context.Context) {
	t := time.NewTicker(e.cfg.OnlineCheckInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := e.remote.Ping(ctx); err != nil {
				if ctx.Err() == nil {
					e.setErr(err)
					e.setMode(ctx, ModeOffline)
				}
				continue
			}
			e.setMode(ctx, ModeOnline)
		}
	}
}
