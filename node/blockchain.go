package node

import (
	"fmt"
	"sync"

	"github.com/somechain-network/node/consensus"
)

// BlockStore is the persistence boundary BlockChain needs: an idempotent
// hash-keyed mapping from header hash to block, plus deletion for pruning.
type BlockStore interface {
	consensus.BlockSource
	PutBlock(hash consensus.Hash, block *consensus.Block) error
	DeleteBlock(hash consensus.Hash) error
}

// BlockChain tracks every chain the node has observed, the active one
// (longest, ties broken first-seen), the shared mempool, and a reference
// count per block hash used to evict blocks once no tracked chain needs
// them anymore.
type BlockChain struct {
	mu       sync.Mutex
	params   consensus.Params
	verifier consensus.SignatureVerifier
	store    BlockStore
	chains   []*consensus.Chain
	active   int
	mempool  *Mempool
	refCount map[consensus.Hash]int
}

// NewBlockChain starts a BlockChain from a genesis block, which becomes the
// sole initial chain.
func NewBlockChain(params consensus.Params, verifier consensus.SignatureVerifier, store BlockStore, genesis *consensus.Block, nowUnix int64) (*BlockChain, error) {
	chain := consensus.NewChain(params, verifier)
	if err := chain.AddBlock(genesis, nowUnix); err != nil {
		return nil, fmt.Errorf("add genesis block: %w", err)
	}
	hash := consensus.HeaderHash(&genesis.Header)
	if err := store.PutBlock(hash, genesis); err != nil {
		return nil, fmt.Errorf("persist genesis block: %w", err)
	}
	return &BlockChain{
		params:   params,
		verifier: verifier,
		store:    store,
		chains:   []*consensus.Chain{chain},
		active:   0,
		mempool:  NewMempool(),
		refCount: map[consensus.Hash]int{hash: 1},
	}, nil
}

func (bc *BlockChain) Active() *consensus.Chain {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return bc.chains[bc.active]
}

func (bc *BlockChain) Mempool() *Mempool {
	return bc.mempool
}

// AddBlock implements the BlockChain fork management policy: extend a
// tracked chain's tip, fork a new chain off a common ancestor, or reject.
func (bc *BlockChain) AddBlock(block *consensus.Block, nowUnix int64) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	hash := consensus.HeaderHash(&block.Header)
	if _, ok := bc.store.GetBlock(hash); ok {
		return nil
	}

	// Snapshot the active chain's headers before this block can change which
	// chain is active, so reconcileMempool can diff against the true "before"
	// state regardless of which branch below ends up handling the block.
	oldActiveHeaders := append([]consensus.BlockHeader(nil), bc.chains[bc.active].HeaderList...)

	for _, chain := range bc.chains {
		tip, ok := chain.Tip()
		tipHash := consensus.HeaderHash(&tip)
		extends := (!ok && block.Header.PrevBlockHash == nil) || (ok && block.Header.PrevBlockHash != nil && *block.Header.PrevBlockHash == tipHash)
		if !extends {
			continue
		}
		if err := chain.AddBlock(block, nowUnix); err != nil {
			return err
		}
		if err := bc.store.PutBlock(hash, block); err != nil {
			return err
		}
		bc.refCount[hash]++
		bc.updateActiveChain()
		bc.reconcileMempool(oldActiveHeaders, nowUnix)
		return nil
	}

	// Soft-fork path: find an ancestor header matching block.prev_block_hash
	// on the longest chain first.
	order := make([]int, len(bc.chains))
	for i := range order {
		order[i] = i
	}
	sortByLengthDesc(order, bc.chains)

	if block.Header.PrevBlockHash == nil {
		return txerrBlockRejected()
	}

	for _, i := range order {
		chain := bc.chains[i]
		ancestorIdx, found := findHeaderIndex(chain.HeaderList, *block.Header.PrevBlockHash)
		if !found {
			continue
		}
		headers := append([]consensus.BlockHeader(nil), chain.HeaderList[:ancestorIdx+1]...)
		forked, err := consensus.BuildFromHeaderList(headers, bc.store, bc.params, bc.verifier, nowUnix)
		if err != nil {
			return err
		}
		if err := forked.AddBlock(block, nowUnix); err != nil {
			return err
		}
		if err := bc.store.PutBlock(hash, block); err != nil {
			return err
		}
		for _, h := range forked.HeaderList {
			bc.refCount[consensus.HeaderHash(&h)]++
		}
		bc.chains = append(bc.chains, forked)
		bc.updateActiveChain()
		bc.reconcileMempool(oldActiveHeaders, nowUnix)
		return nil
	}

	return txerrBlockRejected()
}

func txerrBlockRejected() error {
	return fmt.Errorf("block rejected: no chain extends or forks from it")
}

func findHeaderIndex(headers []consensus.BlockHeader, hash consensus.Hash) (int, bool) {
	for i, h := range headers {
		if consensus.HeaderHash(&h) == hash {
			return i, true
		}
	}
	return 0, false
}

func sortByLengthDesc(order []int, chains []*consensus.Chain) {
	for i := 1; i < len(order); i++ {
		v := order[i]
		j := i - 1
		for j >= 0 && chains[order[j]].Length() < chains[v].Length() {
			order[j+1] = order[j]
			j--
		}
		order[j+1] = v
	}
}

// updateActiveChain selects the longest chain (ties broken first-seen,
// i.e. the lowest index since chains are only ever appended) as active,
// then prunes any chain that has fallen FORK_CHAIN_HEIGHT or more blocks
// behind it.
func (bc *BlockChain) updateActiveChain() {
	best := 0
	for i, c := range bc.chains {
		if c.Length() > bc.chains[best].Length() {
			best = i
		}
	}
	activeChain := bc.chains[best]
	activeLen := activeChain.Length()

	kept := bc.chains[:0:0]
	for _, c := range bc.chains {
		if c != activeChain && activeLen >= bc.params.ForkChainHeight && c.Length() <= activeLen-bc.params.ForkChainHeight {
			bc.pruneChain(c)
			continue
		}
		kept = append(kept, c)
	}
	bc.chains = kept
	for i, c := range bc.chains {
		if c == activeChain {
			bc.active = i
			break
		}
	}
}

// reconcileMempool rebuilds the mempool against a chain switch: every
// transaction newly confirmed between oldHeaders and the current active
// chain's headers is evicted, and every transaction that was confirmed on
// oldHeaders but is no longer confirmed on the active chain is re-admitted
// (re-validated against the new active chain, so one that conflicts with it
// is silently dropped rather than re-admitted).
func (bc *BlockChain) reconcileMempool(oldHeaders []consensus.BlockHeader, nowUnix int64) {
	active := bc.chains[bc.active]
	newHeaders := active.HeaderList
	fork := commonPrefixLen(oldHeaders, newHeaders)
	if fork == len(oldHeaders) && fork == len(newHeaders) {
		return
	}

	for _, h := range newHeaders[fork:] {
		if block, ok := bc.store.GetBlock(consensus.HeaderHash(&h)); ok {
			bc.mempool.Remove(block.Transactions)
		}
	}
	for _, h := range oldHeaders[fork:] {
		block, ok := bc.store.GetBlock(consensus.HeaderHash(&h))
		if !ok {
			continue
		}
		for _, tx := range block.Transactions {
			if tx.IsCoinbase {
				continue
			}
			_ = bc.mempool.Admit(tx, active, nowUnix)
		}
	}
}

// commonPrefixLen returns how many leading headers a and b share, by hash.
func commonPrefixLen(a, b []consensus.BlockHeader) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if consensus.HeaderHash(&a[i]) != consensus.HeaderHash(&b[i]) {
			return i
		}
	}
	return n
}

func (bc *BlockChain) pruneChain(c *consensus.Chain) {
	for _, h := range c.HeaderList {
		hash := consensus.HeaderHash(&h)
		bc.refCount[hash]--
		if bc.refCount[hash] <= 0 {
			delete(bc.refCount, hash)
			_ = bc.store.DeleteBlock(hash)
		}
	}
}

// AdmitTransaction validates tx against the active chain and, on success,
// adds it to the mempool.
func (bc *BlockChain) AdmitTransaction(tx consensus.Transaction, nowUnix int64) error {
	bc.mu.Lock()
	active := bc.chains[bc.active]
	bc.mu.Unlock()
	return bc.mempool.Admit(tx, active, nowUnix)
}
