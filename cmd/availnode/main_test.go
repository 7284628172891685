package main

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/availproject/avail-da/node"
)

// contextWithFlags builds a minimal *cli.Context over cmd's flag set with
// the given args applied, for exercising cfgFromContext without going
// through cli.App.Run (which would invoke the command's Action).
func contextWithFlags(t *testing.T, cmd *cli.Command, args []string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
	for _, f := range cmd.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestCfgFromContext_Defaults(t *testing.T) {
	cmd := runCommand()
	c := contextWithFlags(t, cmd, nil)

	got := cfgFromContext(c)
	want := node.DefaultConfig()
	want.LogLevel = node.VerbosityToLogLevel(want.Verbosity)

	if got.DataDir != want.DataDir {
		t.Errorf("DataDir = %q, want %q", got.DataDir, want.DataDir)
	}
	if got.Network != want.Network {
		t.Errorf("Network = %q, want %q", got.Network, want.Network)
	}
	if got.P2PPort != want.P2PPort {
		t.Errorf("P2PPort = %d, want %d", got.P2PPort, want.P2PPort)
	}
	if got.RPCPort != want.RPCPort {
		t.Errorf("RPCPort = %d, want %d", got.RPCPort, want.RPCPort)
	}
	if got.LogLevel != want.LogLevel {
		t.Errorf("LogLevel = %q, want %q", got.LogLevel, want.LogLevel)
	}
	if got.Metrics != want.Metrics {
		t.Errorf("Metrics = %v, want %v", got.Metrics, want.Metrics)
	}
}

func TestCfgFromContext_Overrides(t *testing.T) {
	cmd := runCommand()
	c := contextWithFlags(t, cmd, []string{
		"--datadir=/tmp/availnode-test",
		"--network=testnet",
		"--port=40000",
		"--http.port=9945",
		"--verbosity=5",
		"--metrics=true",
		"--shardsize=1024",
	})

	cfg := cfgFromContext(c)

	if cfg.DataDir != "/tmp/availnode-test" {
		t.Errorf("DataDir = %q, want /tmp/availnode-test", cfg.DataDir)
	}
	if cfg.Network != "testnet" {
		t.Errorf("Network = %q, want testnet", cfg.Network)
	}
	if cfg.P2PPort != 40000 {
		t.Errorf("P2PPort = %d, want 40000", cfg.P2PPort)
	}
	if cfg.RPCPort != 9945 {
		t.Errorf("RPCPort = %d, want 9945", cfg.RPCPort)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if !cfg.Metrics {
		t.Error("Metrics = false, want true")
	}
	if cfg.ShardSize != 1024 {
		t.Errorf("ShardSize = %d, want 1024", cfg.ShardSize)
	}
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	names := make(map[string]bool)
	for _, cmd := range app.Commands {
		names[cmd.Name] = true
	}
	if !names["run"] {
		t.Error("missing run command")
	}
	if !names["genesis-srs"] {
		t.Error("missing genesis-srs command")
	}
}

func TestGenesisSRSAction(t *testing.T) {
	cmd := genesisSRSCommand()
	out := t.TempDir() + "/srs.bin"
	c := contextWithFlags(t, cmd, []string{"--out=" + out, "--size=4"})

	if err := genesisSRSAction(c); err != nil {
		t.Fatalf("genesisSRSAction: %v", err)
	}
}
