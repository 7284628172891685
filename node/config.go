// Package node wires together the blob store, admitter, gossip/req-resp
// plane, sampler, and JSON-RPC server into a runnable data-availability
// node (spec.md §4, §6).
package node

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all configuration for a data-availability node.
type Config struct {
	// DataDir is the root directory for all data storage (shard store, SRS).
	DataDir string

	// Name is a human-readable node identifier (used in logs).
	Name string

	// Network selects the chain this node serves (mainnet, testnet, dev).
	Network string

	// NetworkID is the numeric network identifier.
	NetworkID uint64

	// P2PPort is the TCP port for gossip/req-resp connections.
	P2PPort int

	// RPCPort is the HTTP port for the JSON-RPC server.
	RPCPort int

	// MaxPeers is the maximum number of P2P peers.
	MaxPeers int

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string

	// Verbosity is the numeric log level, 0-5. VerbosityToLogLevel maps it
	// to a LogLevel (0-1=error, 2=warn, 3=info, 4-5=debug); cmd/availnode
	// sets LogLevel from it.
	Verbosity int

	// Metrics enables the metrics collection subsystem.
	Metrics bool

	// MaxRows and MaxCols bound the polynomial grid (spec.md §4.2).
	MaxRows int
	MaxCols int

	// ShardSize is the byte size of one shard (spec.md §4.10).
	ShardSize uint64

	// BlobTTLBlocks is how many blocks a pending blob's metadata lives
	// before CleanExpired reclaims it (spec.md §4.10).
	BlobTTLBlocks uint64

	// SamplerFraction is the fraction of a sampled shard's bytes fetched
	// per sampling round (spec.md §4.13).
	SamplerFraction float64

	// MinShardHolderCount and MinShardHolderPercentage parameterize the
	// validator-sharding ring (spec.md §4.12).
	MinShardHolderCount      int
	MinShardHolderPercentage float64

	// ConcurrentRequests caps in-flight req/resp exchanges per peer
	// (spec.md §4.11).
	ConcurrentRequests int

	// SRSPath points to the trusted-setup file used to build the KZG
	// backend (spec.md §4.5).
	SRSPath string
}

// defaultDataDir returns the platform-specific default data directory.
// Falls back to ".avail-da" in the current directory if the home directory
// cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".avail-da"
	}
	return filepath.Join(home, ".avail-da")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:                  defaultDataDir(),
		Name:                     "avail-da",
		Network:                  "mainnet",
		NetworkID:                1,
		P2PPort:                  30333,
		RPCPort:                  9944,
		MaxPeers:                 50,
		LogLevel:                 "info",
		Verbosity:                3,
		Metrics:                  false,
		MaxRows:                  256,
		MaxCols:                  256,
		ShardSize:                512 * 1024,
		BlobTTLBlocks:            14400, // ~1 day at 6s blocks
		SamplerFraction:          0.10,
		MinShardHolderCount:      4,
		MinShardHolderPercentage: 0.34,
		ConcurrentRequests:       8,
		SRSPath:                  "",
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config: datadir must not be empty")
	}
	if c.P2PPort < 0 || c.P2PPort > 65535 {
		return fmt.Errorf("config: invalid p2p port: %d", c.P2PPort)
	}
	if c.RPCPort < 0 || c.RPCPort > 65535 {
		return fmt.Errorf("config: invalid rpc port: %d", c.RPCPort)
	}
	if c.MaxPeers < 0 {
		return fmt.Errorf("config: invalid max peers: %d", c.MaxPeers)
	}
	if c.Verbosity < 0 || c.Verbosity > 5 {
		return fmt.Errorf("config: verbosity must be 0-5, got %d", c.Verbosity)
	}
	switch c.Network {
	case "mainnet", "testnet", "dev":
	default:
		return fmt.Errorf("config: unknown network %q", c.Network)
	}
	if c.MaxRows <= 0 || c.MaxCols <= 0 {
		return fmt.Errorf("config: max rows/cols must be positive, got %dx%d", c.MaxRows, c.MaxCols)
	}
	if c.ShardSize == 0 {
		return errors.New("config: shard size must not be zero")
	}
	if c.SamplerFraction <= 0 || c.SamplerFraction > 1 {
		return fmt.Errorf("config: sampler fraction must be in (0,1], got %f", c.SamplerFraction)
	}
	if c.MinShardHolderCount <= 0 {
		return fmt.Errorf("config: min shard holder count must be positive, got %d", c.MinShardHolderCount)
	}
	if c.MinShardHolderPercentage <= 0 || c.MinShardHolderPercentage > 1 {
		return fmt.Errorf("config: min shard holder percentage must be in (0,1], got %f", c.MinShardHolderPercentage)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// VerbosityToLogLevel converts a numeric verbosity level to a log level string.
func VerbosityToLogLevel(v int) string {
	switch {
	case v <= 0:
		return "error" // silent maps to error-only
	case v == 1:
		return "error"
	case v == 2:
		return "warn"
	case v == 3:
		return "info"
	default:
		return "debug" // 4 and 5 both map to debug
	}
}

// dataDirSubdirs lists subdirectories created inside the data directory.
var dataDirSubdirs = []string{
	"shardstore",
	"srs",
	"nodes",
}

// InitDataDir creates the data directory and its standard subdirectories
// if they do not already exist. Returns an error if directory creation fails.
func (c *Config) InitDataDir() error {
	if c.DataDir == "" {
		return errors.New("config: datadir must not be empty")
	}

	// Create the root data directory.
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("config: create datadir: %w", err)
	}

	// Create standard subdirectories.
	for _, sub := range dataDirSubdirs {
		dir := filepath.Join(c.DataDir, sub)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("config: create %s: %w", sub, err)
		}
	}
	return nil
}

// ResolvePath resolves a path relative to the data directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// P2PAddr returns the P2P listen address string.
func (c *Config) P2PAddr() string {
	return fmt.Sprintf(":%d", c.P2PPort)
}

// RPCAddr returns the RPC listen address string.
func (c *Config) RPCAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.RPCPort)
}
