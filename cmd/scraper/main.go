// Package main runs one WITS tariff import.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	scrapercmd "github.com/tariffdesk/tariffdesk/internal/cmd/scraper"
)

func main() {
	cfg, err := scrapercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SCRAPER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := scrapercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("scrape: %v", err)
	}
}
