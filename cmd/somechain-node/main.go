package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/somechain-network/node/consensus"
	"github.com/somechain-network/node/node"
	"github.com/somechain-network/node/node/rpc"
	"github.com/somechain-network/node/node/seed"
	"github.com/somechain-network/node/node/store"
	"github.com/somechain-network/node/walletcrypto"
)

var nowUnix = func() int64 { return time.Now().Unix() }

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := node.DefaultConfig()
	cfg := defaults

	fs := flag.NewFlagSet("somechain-node", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.IntVar(&cfg.Port, "port", defaults.Port, "port to listen on for peer RPC")
	fs.StringVar(&cfg.SeedServer, "seed-server", defaults.SeedServer, "seed registry host:port")
	fs.StringVar(&cfg.DataDir, "datadir", defaults.DataDir, "node data directory")
	fs.StringVar(&cfg.MinerAddress, "miner-address", defaults.MinerAddress, "address to mine to (hex public key); disables mining if empty")
	verbose := fs.Bool("verbose", false, "debug-level logging")
	quiet := fs.Bool("quiet", false, "error-level logging only")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version)
		return 0
	}

	cfg.LogLevel = node.LogLevelFromVerbosity(*verbose, *quiet)
	if err := node.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	log := newLogger(stderr, cfg.LogLevel)
	if cfg.MinerAddress == "" {
		log.Warn("no --miner-address set, mining disabled")
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(stderr, "blockstore open failed: %v\n", err)
		return 2
	}
	defer db.Close()

	params := consensus.DefaultParams()
	verifier := walletcrypto.ECDSAVerifier{}

	genesis := consensus.DefaultGenesisBlock(params)
	bc, err := node.NewBlockChain(params, verifier, db, genesis, nowUnix())
	if err != nil {
		fmt.Fprintf(stderr, "blockchain init failed: %v\n", err)
		return 2
	}

	handler := node.NewHandler(bc, nowUnix)
	gossip := rpc.NewGossip(log)
	server := rpc.NewServer(handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var miner *node.Miner
	if cfg.MinerAddress != "" {
		miner = node.NewMiner(bc, cfg.MinerAddress, node.MinerThresholds{
			MinFees:          100_000_000,
			MinSerializedKB:  consensus.MaxBlockSizeKB / 2,
			MaxTipAgeSeconds: node.AverageBlockMineIntervalSecs,
		})
	}

	// A block or transaction accepted from a peer is re-gossiped to the rest
	// of the network; a block also schedules the miner to abandon its
	// now-stale attempt so an in-progress solve racing the network loses
	// gracefully.
	handler.OnBlockAccepted = func(b *consensus.Block) {
		if miner != nil {
			time.AfterFunc(2*time.Second, miner.Stop)
		}
		go gossip.BroadcastBlock(ctx, b)
	}
	handler.OnTransactionAccepted = func(tx *consensus.Transaction) {
		go gossip.BroadcastTransaction(ctx, tx)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}
	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()
	log.Info("listening", "addr", addr)

	if cfg.SeedServer != "" {
		go discoverPeers(ctx, cfg, gossip, handler, log)
	}

	if miner != nil {
		go runMiner(ctx, miner, bc, gossip, log)
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(stderr, "rpc server failed: %v\n", err)
			return 1
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	if miner != nil {
		miner.Stop()
	}
	return 0
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// discoverPeers registers with the seed registry on startup and every
// interval afterwards, refreshing the gossip layer's peer list with
// whatever the registry currently advertises, then syncs from the tallest
// reachable peer.
func discoverPeers(ctx context.Context, cfg node.Config, gossip *rpc.Gossip, handler *node.Handler, log *slog.Logger) {
	client := seed.NewClient(cfg.SeedServer)
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		peers, err := client.Peers(ctx, cfg.Port)
		if err != nil {
			log.Warn("seed discovery failed", "err", err)
		} else {
			addrs := make([]string, 0, len(peers))
			for _, p := range peers {
				addrs = append(addrs, fmt.Sprintf("%s:%d", p.IP, p.Port))
			}
			addrs = node.NormalizePeerList(addrs)
			gossip.SetPeers(addrs)
			log.Info("discovered peers", "count", len(addrs))
			syncFromTallestPeer(ctx, cfg, addrs, handler, log)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// syncFromTallestPeer greets every discovered peer and, if one advertises a
// longer active chain than ours, runs the fork-point binary search sync
// against it. Sync failures are retried on the next discovery tick.
func syncFromTallestPeer(ctx context.Context, cfg node.Config, addrs []string, handler *node.Handler, log *slog.Logger) {
	tallestHeight := handler.ActiveLength()
	var tallest *rpc.PeerClient
	for _, addr := range addrs {
		peer := rpc.NewPeerClient(addr)
		resp, err := peer.Greet(ctx, cfg.Port, node.ProtocolVersion, handler.ActiveLength())
		if err != nil {
			log.Debug("greet failed", "peer", addr, "err", err)
			continue
		}
		if resp.BlockHeight > tallestHeight {
			tallestHeight = resp.BlockHeight
			tallest = peer
		}
	}
	if tallest == nil {
		return
	}
	if err := rpc.SyncFromPeer(ctx, tallest, handler); err != nil {
		log.Warn("sync aborted", "err", err)
		return
	}
	log.Info("synced from peer", "height", handler.ActiveLength())
}

// runMiner periodically checks the mining start condition and, once it
// starts an attempt, submits a solved block through the exact same
// BlockChain.AddBlock entry point a synced or gossiped block uses.
func runMiner(ctx context.Context, miner *node.Miner, bc *node.BlockChain, gossip *rpc.Gossip, log *slog.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !miner.ShouldStart(nowUnix()) {
			continue
		}
		miner.Start(func(block *consensus.Block) {
			if err := bc.AddBlock(block, nowUnix()); err != nil {
				log.Error("locally mined block rejected", "err", err)
				return
			}
			log.Info("mined block", "height", block.Header.Height)
			gossip.BroadcastBlock(ctx, block)
		})
	}
}
