package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/todosync/internal/client/client"
	"github.com/dmitrijs2005/todosync/internal/client/config"
	"github.com/dmitrijs2005/todosync/internal/client/models"
	"github.com/dmitrijs2005/todosync/internal/client/services"
	"github.com/dmitrijs2005/todosync/internal/client/store"
	"github.com/dmitrijs2005/todosync/internal/client/syncer"
	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/gofrs/flock"
)

var ErrDataDirLocked = errors.New("data directory is used by another todosync process")

// syncEngine is the part of *syncer.Engine the commands use.
type syncEngine interface {
	Sync(ctx context.Context) error
	Refresh(ctx context.Context) error
	Status() syncer.Status
	Pending() []models.PendingOp
}

type App struct {
	config *config.Config
	logger logging.Logger
	out    io.Writer
	render renderer

	todos  services.TodoService
	engine syncEngine

	// ids in the order of the last listing, for numeric references
	listed []string

	run     func(ctx context.Context)
	stop    func()
	closers []io.Closer
}

// NewApp opens local storage, restores the last snapshot and wires the sync
// engine. The data directory is locked for the lifetime of the App.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := ensureDataDir(c.DataDir); err != nil {
		return nil, err
	}

	app := &App{config: c, out: os.Stdout, render: renderer{color: stdinIsTerminal()}}
	if err := app.init(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// init acquires resources in order; on failure the ones already held are
// released.
func (a *App) init(ctx context.Context) (err error) {
	c := a.config
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	lock := flock.New(filepath.Join(c.DataDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return ErrDataDirLocked
	}
	a.closers = append(a.closers, closerFunc(lock.Unlock))

	logger, logFile := logging.NewRotatingLogger(logging.RotateOptions{
		Path:  filepath.Join(c.DataDir, logFileName),
		Level: logging.ParseLevel(c.LogLevel),
	})
	a.logger = logger.With("module", "cli")
	a.closers = append(a.closers, logFile)

	passphrase := c.Passphrase
	if passphrase == askPassphrase {
		if passphrase, err = GetPassword(a.out, "Passphrase: "); err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
	}

	repo, repoCloser, err := openRepository(ctx, c, passphrase)
	if err != nil {
		return err
	}
	if repoCloser != nil {
		a.closers = append(a.closers, repoCloser)
	}

	deviceID, err := syncer.ResolveDeviceID(ctx, repo, c.DeviceID)
	if err != nil {
		return err
	}

	remote, err := client.NewGRPCClient(c.ServerEndpointAddr, c.AccessToken, deviceID)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, remote)

	var feed client.Subscriber = remote
	if c.RealtimeTransport == config.TransportWS {
		feed = client.NewWSFeed(c.FeedURL, c.AccessToken, deviceID)
	}

	st := store.New()
	engine := syncer.New(st, remote, feed, repo, logger, syncer.Config{
		DeviceID:            deviceID,
		OnlineCheckInterval: c.OnlineCheckInterval,
		BackoffBase:         c.BackoffBase,
		BackoffCap:          c.BackoffCap,
	})
	// closed first: the final snapshot write needs the repository
	a.closers = append(a.closers, closerFunc(func() error {
		engine.Close()
		return nil
	}))

	if err := engine.Bootstrap(ctx); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	a.engine = engine
	a.run = engine.Start
	a.stop = engine.Stop
	a.todos = services.NewTodoService(st, logger)

	a.logger.Info(ctx, "client ready", "device", deviceID, "kv", c.KVBackend, "transport", c.RealtimeTransport)
	return nil
}

// Run starts background sync and blocks in the REPL until the user exits
// or ctx is done.
func (a *App) Run(ctx context.Context, in io.Reader) {
	if a.run != nil {
		a.run(ctx)
		defer a.stop()
	}

	printlnFn("todosync (type 'help' for commands)")
	runREPL(ctx, a, a.prompt, bufio.NewScanner(in))
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && a.logger != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) prompt() string {
	if a.engine == nil {
		return "todo> "
	}
	st := a.engine.Status()
	if st.Pending > 0 {
		return fmt.Sprintf("todo (%s, %d pending)> ", a.render.mode(st.Mode), st.Pending)
	}
	return fmt.Sprintf("todo (%s)> ", a.render.mode(st.Mode))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
