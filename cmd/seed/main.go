// Package main loads the development catalog and admin accounts into the
// API database.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	seedcmd "github.com/tariffdesk/tariffdesk/internal/cmd/seed"
	"github.com/tariffdesk/tariffdesk/internal/platform/config"
)

func main() {
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitIfError("parse flags", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := seedcmd.Run(ctx, cfg, os.Stdout); err != nil {
		stop()
		config.Exitf("seed: %v", err)
	}
}
