// Package main runs the interactive console shell.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atinyakov/opsconsole/internal/client/listquery"
	"github.com/atinyakov/opsconsole/internal/client/shell"
	"github.com/atinyakov/opsconsole/internal/config"
	"github.com/atinyakov/opsconsole/internal/console"
	"github.com/atinyakov/opsconsole/internal/logger"
)

var (
	version   string
	buildDate string
)

// main parses configuration, wires the console and runs the shell.
func main() {
	options := config.Parse()

	if options.Version {
		fmt.Printf("opsconsole\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	zl := logger.New()
	if err := zl.Init(options.LogLevel); err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := console.Open(ctx, options, zl.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	sh := shell.New(c.Session, c.Payments, listquery.NewState(options.PageLimit), os.Stdin, os.Stdout,
		listquery.WithDebounce(options.Debounce.Duration),
		listquery.WithLogger(zl.Log.Named("payments")),
	)
	defer sh.Close()

	sweeper := c.Profiles.StartSweeper(ctx, options.SweepInterval.Duration, func() { sh.ProfileExpired(ctx) })
	defer sweeper.Stop()

	if err := sh.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
