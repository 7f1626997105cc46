// Package main prints a fresh API token signing secret.
package main

import (
	"flag"
	"os"

	"github.com/tariffdesk/tariffdesk/internal/platform/config"
	"github.com/tariffdesk/tariffdesk/internal/tools/jwtkey"
)

func main() {
	cfg, err := jwtkey.ParseConfig(flag.CommandLine, os.Args[1:])
	config.ExitIfError("parse flags", err)
	config.ExitIfError("generate key", jwtkey.Run(cfg, os.Stdout, nil))
}
