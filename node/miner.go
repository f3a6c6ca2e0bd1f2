package node

import (
	"sync"
	"time"

	"github.com/somechain-network/node/consensus"
)

// MinerState is the miner's lifecycle state: Idle -> Mining -> (Solved |
// Terminated) -> Idle.
type MinerState int

const (
	MinerIdle MinerState = iota
	MinerMining
	MinerSolved
	MinerTerminated
)

// MinerThresholds gates when the miner's periodic check decides to start a
// new mining attempt. A zero MinFees or MinSerializedKB disables that
// trigger; a zero MaxTipAgeSeconds falls back to the network's average
// block interval.
type MinerThresholds struct {
	MinFees          uint64
	MinSerializedKB  int
	MaxTipAgeSeconds int64
}

// Miner assembles candidate blocks from the mempool and searches for a
// nonce satisfying the active chain's difficulty, running on its own
// goroutine so the ingestion path is never blocked by the nonce search.
type Miner struct {
	bc           *BlockChain
	minerAddress string
	thresholds   MinerThresholds

	mu    sync.Mutex
	state MinerState
	stop  chan struct{}
	done  chan struct{}
}

func NewMiner(bc *BlockChain, minerAddress string, thresholds MinerThresholds) *Miner {
	return &Miner{bc: bc, minerAddress: minerAddress, thresholds: thresholds, state: MinerIdle}
}

func (m *Miner) State() MinerState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ShouldStart reports whether the start condition in the mining loop
// design is currently satisfied: enough pending fees, enough pending
// serialized size, or the tip is old enough.
func (m *Miner) ShouldStart(nowUnix int64) bool {
	if m.State() != MinerIdle {
		return false
	}
	active := m.bc.Active()
	txs := m.bc.Mempool().SnapshotByFeeDescending()

	var fees uint64
	var size int
	for i := range txs {
		fees += txs[i].Fees
		size += len(consensus.CanonicalTransaction(&txs[i]))
	}
	if m.thresholds.MinFees > 0 && fees >= m.thresholds.MinFees {
		return true
	}
	if m.thresholds.MinSerializedKB > 0 && size >= m.thresholds.MinSerializedKB*1024 {
		return true
	}
	maxAge := m.thresholds.MaxTipAgeSeconds
	if maxAge <= 0 {
		maxAge = AverageBlockMineIntervalSecs
	}
	tip, ok := active.Tip()
	if !ok {
		return true
	}
	return nowUnix-tip.Timestamp >= maxAge
}

// AverageBlockMineIntervalSecs mirrors consensus.AverageBlockMineIntervalSecs,
// kept local so the miner's start-condition check reads naturally against
// node-level thresholds.
const AverageBlockMineIntervalSecs = consensus.AverageBlockMineIntervalSecs

// Start begins an asynchronous mining attempt. Calling Start while already
// mining is a no-op. onSolved is invoked with the solved block through the
// same goroutine that found it; the caller is responsible for submitting
// it through BlockChain.AddBlock, the same ingestion path a peer's block
// would use.
func (m *Miner) Start(onSolved func(*consensus.Block)) {
	m.mu.Lock()
	if m.state == MinerMining {
		m.mu.Unlock()
		return
	}
	m.state = MinerMining
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop := m.stop
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		block, ok := m.mine(stop)
		m.mu.Lock()
		if ok {
			m.state = MinerSolved
		} else {
			m.state = MinerTerminated
		}
		m.mu.Unlock()
		if ok && onSolved != nil {
			onSolved(block)
		}
		m.mu.Lock()
		m.state = MinerIdle
		m.mu.Unlock()
	}()
}

// Stop requests termination of an in-progress mining attempt and blocks
// until the goroutine has exited. Calling it when not mining is a no-op.
func (m *Miner) Stop() {
	m.mu.Lock()
	if m.state != MinerMining {
		m.mu.Unlock()
		return
	}
	stop := m.stop
	done := m.done
	m.mu.Unlock()

	close(stop)
	<-done
}

// mine builds a candidate block from the current mempool and searches the
// full 64-bit nonce range for one satisfying the active chain's difficulty,
// yielding to stop between attempts.
func (m *Miner) mine(stop <-chan struct{}) (*consensus.Block, bool) {
	active := m.bc.Active()
	candidates := m.bc.Mempool().SnapshotByFeeDescending()

	selected := make([]consensus.Transaction, 0, len(candidates))
	var size int
	var fees uint64
	for _, tx := range candidates {
		txBytes := consensus.CanonicalTransaction(&tx)
		if size+len(txBytes) > consensus.MaxBlockSizeKB*1024 {
			continue
		}
		size += len(txBytes)
		fees += tx.Fees
		selected = append(selected, tx)
	}

	coinbase := consensus.Transaction{
		IsCoinbase: true,
		Version:    1,
		Timestamp:  time.Now().Unix(),
		Vin: map[int]consensus.TxIn{
			0: {Payout: nil, PubKey: m.minerAddress},
		},
		Vout: map[int]consensus.TxOut{
			0: {Amount: active.CurrentBlockReward(), Address: m.minerAddress},
			1: {Amount: fees, Address: m.minerAddress},
		},
	}
	txs := append([]consensus.Transaction{coinbase}, selected...)

	var prevHash *consensus.Hash
	if tip, ok := active.Tip(); ok {
		h := consensus.HeaderHash(&tip)
		prevHash = &h
	}

	header := consensus.BlockHeader{
		Version:          1,
		Height:           active.Length(),
		PrevBlockHash:    prevHash,
		MerkleRoot:       consensus.MerkleHash(txs),
		Timestamp:        time.Now().Unix(),
		TargetDifficulty: active.TargetDiff,
		Nonce:            0,
	}

	for nonce := uint64(0); ; nonce++ {
		select {
		case <-stop:
			return nil, false
		default:
		}
		header.Nonce = nonce
		if consensus.IsProperDifficulty(consensus.HeaderHash(&header), header.TargetDifficulty) {
			return &consensus.Block{Header: header, Transactions: txs}, true
		}
		if nonce == ^uint64(0) {
			return nil, false
		}
	}
}
