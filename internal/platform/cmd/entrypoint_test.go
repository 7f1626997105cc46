package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"

	"go.uber.org/zap"

	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
)

type testConfig struct {
	Address string `env:"CMD_TEST_ADDRESS" envDefault:"127.0.0.1:8080"`
	Mode    string `env:"CMD_TEST_MODE" envDefault:"server"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDRESS", "env:9000")
	t.Setenv("CMD_TEST_MODE", "env-mode")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfgRef := testConfig{}
	if err := ParseConfig(&cfgRef); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfgRef.Address, "address", cfgRef.Address, "address")
	fs.StringVar(&cfgRef.Mode, "mode", cfgRef.Mode, "mode")

	if err := ParseArgs(fs, []string{"-address", "flag:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfgRef.Address != "flag:9001" {
		t.Fatalf("expected flag value for address, got %q", cfgRef.Address)
	}
	if cfgRef.Mode != "env-mode" {
		t.Fatalf("expected env default mode, got %q", cfgRef.Mode)
	}
}

func TestParseConfigFromArgsReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CMD_TEST_ADDRESS", "configarg:9000")
	t.Setenv("CMD_TEST_MODE", "configarg-mode")

	cfgRef := testConfig{}
	fs := flag.NewFlagSet("configargs", flag.ContinueOnError)
	fs.StringVar(&cfgRef.Address, "address", "", "address")
	fs.StringVar(&cfgRef.Mode, "mode", "", "mode")
	if err := ParseConfigFromArgs(&cfgRef, fs, []string{"-address", "flag:9002"}); err != nil {
		t.Fatalf("parse config and args: %v", err)
	}
	if cfgRef.Address != "flag:9002" {
		t.Fatalf("expected parsed flag address, got %q", cfgRef.Address)
	}
	if cfgRef.Mode != "configarg-mode" {
		t.Fatalf("expected env default mode, got %q", cfgRef.Mode)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	var cfg *testConfig
	if err := ParseConfig(cfg); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	noop := func(context.Context, *zap.Logger) error { return nil }
	if err := RunWithTelemetry(context.Background(), "", noop); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceAPI, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryPassesLoggerAndError(t *testing.T) {
	t.Setenv("TARIFFDESK_OTEL_ENDPOINT", "")
	want := errors.New("stop")

	var got *zap.Logger
	err := RunWithTelemetryAndOptions(context.Background(), ServiceWeb, RunOptions{
		Logging: &logging.Config{Level: "error", Format: logging.FormatJSON},
	}, func(_ context.Context, logger *zap.Logger) error {
		got = logger
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected run error, got %v", err)
	}
	if got == nil {
		t.Fatal("expected run to receive a logger")
	}
}

func TestRunWithTelemetryRejectsBadLogConfig(t *testing.T) {
	err := RunWithTelemetryAndOptions(context.Background(), ServiceAPI, RunOptions{
		Logging: &logging.Config{Level: "nope"},
	}, func(context.Context, *zap.Logger) error { return nil })
	if err == nil {
		t.Fatal("expected logger config error")
	}
}
