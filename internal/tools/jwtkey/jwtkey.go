// Package jwtkey generates signing secrets for API session tokens.
package jwtkey

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
)

// EnvVar is the variable the API reads its signing secret from.
const EnvVar = "TARIFFDESK_JWT_SECRET"

// minBytes keeps generated secrets at HS256 strength.
const minBytes = 16

// Config holds configuration for key generation.
type Config struct {
	Bytes int
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Bytes: 32}
	fs.IntVar(&cfg.Bytes, "bytes", cfg.Bytes, "number of random bytes")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run generates the secret and writes it to out as an env assignment.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	if cfg.Bytes < minBytes {
		return fmt.Errorf("bytes must be at least %d", minBytes)
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	buf := make([]byte, cfg.Bytes)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return fmt.Errorf("generate random bytes: %w", err)
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", EnvVar, hex.EncodeToString(buf))
	return err
}
