// Command availnode is the main entry point for the avail-da
// data-availability node.
//
// Usage:
//
//	availnode run [flags]
//	availnode genesis-srs --out <path> --size <n>
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/availproject/avail-da/crypto"
	avlog "github.com/availproject/avail-da/log"
	"github.com/availproject/avail-da/metrics"
	"github.com/availproject/avail-da/node"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// run is the actual entry point, returning an exit code. Accepts the full
// os.Args (including argv[0]) so it can be driven by cli.App in isolation
// from tests.
func run(args []string) int {
	app := newApp()
	if err := app.Run(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "availnode"
	app.Usage = "avail-da data-availability node"
	app.Version = fmt.Sprintf("%s (commit %s)", version, commit)
	app.Commands = []*cli.Command{
		runCommand(),
		genesisSRSCommand(),
	}
	return app
}

func runCommand() *cli.Command {
	defaults := node.DefaultConfig()
	return &cli.Command{
		Name:  "run",
		Usage: "run a data-availability node",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "datadir", Value: defaults.DataDir, Usage: "data directory path"},
			&cli.StringFlag{Name: "name", Value: defaults.Name, Usage: "node identifier"},
			&cli.StringFlag{Name: "network", Value: defaults.Network, Usage: "network (mainnet, testnet, dev)"},
			&cli.Uint64Flag{Name: "networkid", Value: defaults.NetworkID, Usage: "numeric network identifier"},
			&cli.IntFlag{Name: "port", Value: defaults.P2PPort, Usage: "P2P listening port"},
			&cli.IntFlag{Name: "http.port", Value: defaults.RPCPort, Usage: "JSON-RPC server port"},
			&cli.IntFlag{Name: "maxpeers", Value: defaults.MaxPeers, Usage: "maximum number of P2P peers"},
			&cli.IntFlag{Name: "verbosity", Value: defaults.Verbosity, Usage: "log level 0-5 (0-1=error, 2=warn, 3=info, 4-5=debug)"},
			&cli.BoolFlag{Name: "metrics", Value: defaults.Metrics, Usage: "enable the metrics HTTP endpoint"},
			&cli.IntFlag{Name: "metrics.port", Value: 9100, Usage: "metrics HTTP endpoint port"},
			&cli.IntFlag{Name: "maxrows", Value: defaults.MaxRows, Usage: "maximum polynomial grid rows"},
			&cli.IntFlag{Name: "maxcols", Value: defaults.MaxCols, Usage: "maximum polynomial grid columns"},
			&cli.Uint64Flag{Name: "shardsize", Value: defaults.ShardSize, Usage: "shard size in bytes"},
			&cli.Uint64Flag{Name: "blobttl", Value: defaults.BlobTTLBlocks, Usage: "blob metadata TTL in blocks"},
			&cli.Float64Flag{Name: "samplerfraction", Value: defaults.SamplerFraction, Usage: "fraction of a shard sampled per round"},
			&cli.IntFlag{Name: "minshardholders", Value: defaults.MinShardHolderCount, Usage: "minimum shard holder count"},
			&cli.Float64Flag{Name: "minshardholderpct", Value: defaults.MinShardHolderPercentage, Usage: "minimum shard holder percentage"},
			&cli.IntFlag{Name: "concurrentreqs", Value: defaults.ConcurrentRequests, Usage: "max concurrent req/resp exchanges per peer"},
			&cli.StringFlag{Name: "srs", Value: defaults.SRSPath, Usage: "path to a trusted-setup SRS file (dev SRS generated when empty)"},
		},
		Action: runAction,
	}
}

// cfgFromContext builds a node.Config from the "run" command's flags,
// starting from node.DefaultConfig() so any flag the caller didn't set
// keeps its default value.
func cfgFromContext(c *cli.Context) node.Config {
	cfg := node.DefaultConfig()
	cfg.DataDir = c.String("datadir")
	cfg.Name = c.String("name")
	cfg.Network = c.String("network")
	cfg.NetworkID = c.Uint64("networkid")
	cfg.P2PPort = c.Int("port")
	cfg.RPCPort = c.Int("http.port")
	cfg.MaxPeers = c.Int("maxpeers")
	cfg.Verbosity = c.Int("verbosity")
	cfg.LogLevel = node.VerbosityToLogLevel(cfg.Verbosity)
	cfg.Metrics = c.Bool("metrics")
	cfg.MaxRows = c.Int("maxrows")
	cfg.MaxCols = c.Int("maxcols")
	cfg.ShardSize = c.Uint64("shardsize")
	cfg.BlobTTLBlocks = c.Uint64("blobttl")
	cfg.SamplerFraction = c.Float64("samplerfraction")
	cfg.MinShardHolderCount = c.Int("minshardholders")
	cfg.MinShardHolderPercentage = c.Float64("minshardholderpct")
	cfg.ConcurrentRequests = c.Int("concurrentreqs")
	cfg.SRSPath = c.String("srs")
	return cfg
}

func runAction(c *cli.Context) error {
	cfg := cfgFromContext(c)

	avlog.SetLevel(cfg.LogLevel)
	log := avlog.New("main")

	log.Info().Str("version", version).Msg("availnode starting")
	log.Info().
		Str("datadir", cfg.DataDir).
		Str("network", cfg.Network).
		Uint64("networkid", cfg.NetworkID).
		Int("p2p_port", cfg.P2PPort).
		Int("rpc_port", cfg.RPCPort).
		Int("max_peers", cfg.MaxPeers).
		Bool("metrics", cfg.Metrics).
		Msg("resolved configuration")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	n, err := node.New(&cfg)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	if cfg.Metrics {
		addr := fmt.Sprintf(":%d", c.Int("metrics.port"))
		exporter := metrics.NewPrometheusExporter(metrics.DefaultRegistry, metrics.DefaultPrometheusConfig())
		metricsSrv := &http.Server{Addr: addr, Handler: exporter.Handler()}
		go func() {
			log.Info().Str("addr", addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer metricsSrv.Close()
	}

	if err := n.Start(); err != nil {
		return fmt.Errorf("start node: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("received signal, shutting down")

	if err := n.Stop(); err != nil {
		return fmt.Errorf("stop node: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}

func genesisSRSCommand() *cli.Command {
	return &cli.Command{
		Name:  "genesis-srs",
		Usage: "generate a development trusted-setup SRS file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Required: true, Usage: "output path for the SRS file"},
			&cli.Uint64Flag{Name: "size", Value: 256, Usage: "number of G1 points (grid column count)"},
		},
		Action: genesisSRSAction,
	}
}

func genesisSRSAction(c *cli.Context) error {
	size := c.Uint64("size")
	out := c.String("out")

	srs, err := crypto.NewDevSRS(size)
	if err != nil {
		return fmt.Errorf("generate dev srs: %w", err)
	}
	if err := crypto.SaveSRS(out, srs); err != nil {
		return fmt.Errorf("save srs: %w", err)
	}
	fmt.Printf("wrote %d-point development SRS to %s\n", size, out)
	fmt.Println("this SRS's toxic waste was not verifiably destroyed; never use it in production")
	return nil
}
