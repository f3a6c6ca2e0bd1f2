package rpc

import (
	"context"
	"log/slog"
	"sync"

	"github.com/somechain-network/node/consensus"
)

// Gossip broadcasts newly ingested blocks and admitted transactions to
// every known peer, fire-and-forget: a failing or slow peer never delays
// the caller past its own per-request timeout.
type Gossip struct {
	log *slog.Logger

	mu    sync.Mutex
	peers map[string]*PeerClient
}

func NewGossip(log *slog.Logger) *Gossip {
	if log == nil {
		log = slog.Default()
	}
	return &Gossip{log: log, peers: make(map[string]*PeerClient)}
}

func (g *Gossip) SetPeers(addrs []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.peers = make(map[string]*PeerClient, len(addrs))
	for _, a := range addrs {
		g.peers[a] = NewPeerClient(a)
	}
}

func (g *Gossip) snapshot() []*PeerClient {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*PeerClient, 0, len(g.peers))
	for _, c := range g.peers {
		out = append(out, c)
	}
	return out
}

// BroadcastBlock sends block to every peer concurrently, logging but not
// surfacing individual peer failures.
func (g *Gossip) BroadcastBlock(ctx context.Context, block *consensus.Block) {
	var wg sync.WaitGroup
	for _, peer := range g.snapshot() {
		wg.Add(1)
		go func(p *PeerClient) {
			defer wg.Done()
			if _, err := p.NewBlock(ctx, block); err != nil {
				g.log.Debug("gossip newblock failed", "err", err)
			}
		}(peer)
	}
	wg.Wait()
}

// BroadcastTransaction sends tx to every peer concurrently.
func (g *Gossip) BroadcastTransaction(ctx context.Context, tx *consensus.Transaction) {
	var wg sync.WaitGroup
	for _, peer := range g.snapshot() {
		wg.Add(1)
		go func(p *PeerClient) {
			defer wg.Done()
			if _, err := p.NewTransaction(ctx, tx); err != nil {
				g.log.Debug("gossip newtransaction failed", "err", err)
			}
		}(peer)
	}
	wg.Wait()
}
