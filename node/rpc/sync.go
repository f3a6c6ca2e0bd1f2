package rpc

import (
	"context"
	"fmt"

	"github.com/somechain-network/node/consensus"
)

// Ingest is implemented by the node's Handler, which wraps BlockChain: the
// single entry point through which both synced and gossiped blocks arrive.
type Ingest interface {
	AddBlock(block *consensus.Block) error
	ActiveHeaderAt(height int) (consensus.Hash, bool)
	ActiveLength() int
}

// SyncFromPeer runs the fork-point binary search against peer and fetches
// every block above the agreed fork height, inserting each one through
// ingest.AddBlock. It aborts on the first rejected block.
func SyncFromPeer(ctx context.Context, client *PeerClient, ingest Ingest) error {
	forkHeight, err := findForkPoint(ctx, client, ingest)
	if err != nil {
		return err
	}

	hashes, err := client.GetBlockHashes(ctx, forkHeight)
	if err != nil {
		return fmt.Errorf("getblockhashes: %w", err)
	}

	for _, hash := range hashes {
		block, ok, err := client.GetBlock(ctx, hash)
		if err != nil {
			return fmt.Errorf("getblock %s: %w", hash, err)
		}
		if !ok {
			return fmt.Errorf("peer advertised hash %s but did not serve it", hash)
		}
		if err := ingest.AddBlock(block); err != nil {
			return fmt.Errorf("reject block %s: %w", hash, err)
		}
	}
	return nil
}

// findForkPoint binary searches [0, active.length-1] for the largest index
// the peer agrees matches our header hash at that height.
func findForkPoint(ctx context.Context, client *PeerClient, ingest Ingest) (int, error) {
	lo, hi := 0, ingest.ActiveLength()-1
	if hi < 0 {
		return -1, nil
	}
	best := -1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ourHash, ok := ingest.ActiveHeaderAt(mid)
		if !ok {
			return best, fmt.Errorf("no local header at height %d", mid)
		}
		agrees, err := client.CheckBlock(ctx, ourHash)
		if err != nil {
			return best, fmt.Errorf("checkblock at height %d: %w", mid, err)
		}
		if agrees {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}
