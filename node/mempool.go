package node

import (
	"sort"
	"sync"

	"github.com/somechain-network/node/consensus"
)

// Mempool is the set of candidate transactions awaiting inclusion in a
// block, keyed by transaction identity.
type Mempool struct {
	mu  sync.Mutex
	set map[consensus.Hash]consensus.Transaction
}

func NewMempool() *Mempool {
	return &Mempool{set: make(map[consensus.Hash]consensus.Transaction)}
}

// Admit validates tx against active and, if it is not already present and
// passes validation, adds it to the mempool.
func (m *Mempool) Admit(tx consensus.Transaction, active *consensus.Chain, nowUnix int64) error {
	id := consensus.TxID(&tx)

	m.mu.Lock()
	_, present := m.set[id]
	m.mu.Unlock()
	if present {
		return nil
	}

	if err := tx.IsTransactionValid(active.Utxo, active.Params, active.Length(), active.Verifier, nowUnix); err != nil {
		return err
	}

	m.mu.Lock()
	m.set[id] = tx
	m.mu.Unlock()
	return nil
}

// Remove deletes every transaction in txs from the mempool, compared by
// identity rather than value equality.
func (m *Mempool) Remove(txs []consensus.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range txs {
		delete(m.set, consensus.TxID(&txs[i]))
	}
}

// SnapshotByFeeDescending returns every mempool transaction sorted by fee
// descending, the order the miner greedily selects from.
func (m *Mempool) SnapshotByFeeDescending() []consensus.Transaction {
	m.mu.Lock()
	out := make([]consensus.Transaction, 0, len(m.set))
	for _, tx := range m.set {
		out = append(out, tx)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Fees != out[j].Fees {
			return out[i].Fees > out[j].Fees
		}
		return consensus.TxID(&out[i]) < consensus.TxID(&out[j])
	})
	return out
}

func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.set)
}
