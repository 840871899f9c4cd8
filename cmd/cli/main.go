package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/todosync/internal/buildinfo"
	"github.com/dmitrijs2005/todosync/internal/client/cli"
	"github.com/dmitrijs2005/todosync/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		if errors.Is(err, cli.ErrDataDirLocked) {
			fmt.Fprintf(os.Stderr, "another todosync instance is using %s\n", cfg.DataDir)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	defer app.Close()

	app.Run(ctx, os.Stdin)

}
