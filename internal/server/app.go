// Package server wires and runs the reference todosync server: the todo
// service over gRPC and the change feed over gRPC and WebSocket.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/todosync/internal/logging"
	"github.com/dmitrijs2005/todosync/internal/server/auth"
	"github.com/dmitrijs2005/todosync/internal/server/config"
	"github.com/dmitrijs2005/todosync/internal/server/feed"
	"github.com/dmitrijs2005/todosync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/todosync/internal/server/services"
	"github.com/dmitrijs2005/todosync/internal/server/ws"

	gs "github.com/dmitrijs2005/todosync/internal/server/grpc"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	servers map[string]runner
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(c.LogLevel))

	rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, rows are kept in memory")
	}
	if c.SecretKey == "" {
		logger.Warn(ctx, "no secret key configured, every caller acts as the anonymous user")
	}

	broker := feed.NewBroker(logger)
	ts := services.NewTodoService(rm.Todos(), broker, logger)
	authn := auth.NewAuthenticator(c.SecretKey)

	return &App{
		config: c,
		logger: logger,
		repos:  rm,
		servers: map[string]runner{
			"grpc": gs.NewGRPCServer(c.EndpointAddrGRPC, logger, ts, broker, authn),
			"ws":   ws.NewServer(c.EndpointAddrHTTP, logger, broker, authn),
		},
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is done, a signal arrives or one of the servers
// fails. A failing server stops the others.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for name, s := range app.servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err)
				cancelFunc()
			}
		}()
	}

	wg.Wait()

	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "closing repositories", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
