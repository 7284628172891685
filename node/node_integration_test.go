package node

import (
	"testing"
)

// TestNodeCreate verifies that a Node can be created with default config
// and that all subsystems are initialized.
func TestNodeCreate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.P2PPort = 0
	cfg.RPCPort = 0
	cfg.MaxCols = 4
	cfg.MaxRows = 4

	n, err := New(&cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { n.store.Close() })

	if n.Store() == nil {
		t.Fatal("shard store should be initialized")
	}
	if n.Admitter() == nil {
		t.Fatal("admitter should be initialized")
	}

	if n.Config() == nil {
		t.Fatal("config should be initialized")
	}
	if n.Config().Network != "mainnet" {
		t.Errorf("network = %s, want mainnet", n.Config().Network)
	}

	if n.Running() {
		t.Error("node should not be running before Start()")
	}
}

// TestNodeConfigValidation verifies that invalid configurations are rejected
// when creating a Node.
func TestNodeConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{
			name:   "invalid network",
			modify: func(c *Config) { c.Network = "badnet" },
		},
		{
			name:   "empty datadir",
			modify: func(c *Config) { c.DataDir = "" },
		},
		{
			name:   "invalid port",
			modify: func(c *Config) { c.P2PPort = -1 },
		},
		{
			name:   "invalid log level",
			modify: func(c *Config) { c.LogLevel = "verbose" },
		},
		{
			name:   "verbosity too high",
			modify: func(c *Config) { c.Verbosity = 6 },
		},
		{
			name:   "verbosity too low",
			modify: func(c *Config) { c.Verbosity = -1 },
		},
		{
			name:   "zero max rows",
			modify: func(c *Config) { c.MaxRows = 0 },
		},
		{
			name:   "sampler fraction out of range",
			modify: func(c *Config) { c.SamplerFraction = 1.5 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			cfg.P2PPort = 0
			cfg.RPCPort = 0
			tt.modify(&cfg)

			_, err := New(&cfg)
			if err == nil {
				t.Fatal("expected error for invalid config")
			}
		})
	}
}

// TestNodeCreateWithNilConfig verifies that passing nil config uses defaults.
func TestNodeCreateWithNilConfig(t *testing.T) {
	n, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error: %v", err)
	}
	if n.Config().Network != "mainnet" {
		t.Errorf("network = %s, want mainnet", n.Config().Network)
	}
}

// TestNodeStartStopLifecycle verifies the full node lifecycle: create, start,
// verify running state, stop, verify stopped state.
func TestNodeStartStopLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.P2PPort = 0
	cfg.RPCPort = 0
	cfg.MaxCols = 4
	cfg.MaxRows = 4

	n, err := New(&cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !n.Running() {
		t.Error("node should be running after Start()")
	}

	if err := n.Start(); err == nil {
		t.Error("expected error on double Start()")
	}

	if err := n.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if n.Running() {
		t.Error("node should not be running after Stop()")
	}
}

// TestNodeSubsystemsAvailable verifies that all subsystems are accessible
// after node creation.
func TestNodeSubsystemsAvailable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.P2PPort = 0
	cfg.RPCPort = 0
	cfg.MaxCols = 4
	cfg.MaxRows = 4

	n, err := New(&cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { n.store.Close() })

	if n.gossip == nil {
		t.Fatal("gossip handler should not be nil")
	}
	if n.reqresp == nil {
		t.Fatal("req/resp protocol should not be nil")
	}
}

// TestNodeNetworkConfigs verifies that nodes can be created with different
// network configurations.
func TestNodeNetworkConfigs(t *testing.T) {
	networks := []string{"mainnet", "testnet", "dev"}
	for _, network := range networks {
		t.Run(network, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			cfg.Network = network
			cfg.P2PPort = 0
			cfg.RPCPort = 0
			cfg.MaxCols = 4
			cfg.MaxRows = 4

			n, err := New(&cfg)
			if err != nil {
				t.Fatalf("New() error for %s: %v", network, err)
			}
			t.Cleanup(func() { n.store.Close() })
			if n.Config().Network != network {
				t.Errorf("network = %s, want %s", n.Config().Network, network)
			}
		})
	}
}

// TestNodeBackendIntegration verifies the RPC backend adapter rejects a
// query for a block it has never recorded a committed grid for.
func TestNodeBackendIntegration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.P2PPort = 0
	cfg.RPCPort = 0
	cfg.MaxCols = 4
	cfg.MaxRows = 4

	n, err := New(&cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { n.store.Close() })

	backend := newNodeBackend(n, n.kzg)

	if _, err := backend.QueryBlockLength("0x01"); err == nil {
		t.Error("expected error for unknown block hash")
	}
}
