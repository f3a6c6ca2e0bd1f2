package node

import (
	"strings"
	"testing"
	"time"

	"github.com/somechain-network/node/consensus"
)

// mineHeader brute-forces a nonce for header, mirroring Miner's real loop.
func mineHeader(header *consensus.BlockHeader) {
	for nonce := uint64(0); ; nonce++ {
		header.Nonce = nonce
		if consensus.IsProperDifficulty(consensus.HeaderHash(header), header.TargetDifficulty) {
			return
		}
	}
}

func buildChainBlock(t *testing.T, active *consensus.Chain, minerAddr string, timestamp int64, prev *consensus.BlockHeader, extraTxs []consensus.Transaction) *consensus.Block {
	t.Helper()
	var fees uint64
	for _, tx := range extraTxs {
		fees += tx.Fees
	}
	coinbase := consensus.Transaction{
		IsCoinbase: true,
		Version:    1,
		Timestamp:  timestamp,
		Vin:        map[int]consensus.TxIn{0: {}},
		Vout: map[int]consensus.TxOut{
			0: {Amount: active.CurrentBlockReward(), Address: minerAddr},
			1: {Amount: fees, Address: minerAddr},
		},
	}
	txs := append([]consensus.Transaction{coinbase}, extraTxs...)

	var prevHash *consensus.Hash
	if prev != nil {
		h := consensus.HeaderHash(prev)
		prevHash = &h
	}
	header := consensus.BlockHeader{
		Version:          1,
		Height:           active.Length(),
		PrevBlockHash:    prevHash,
		MerkleRoot:       consensus.MerkleHash(txs),
		Timestamp:        timestamp,
		TargetDifficulty: active.TargetDiff,
	}
	mineHeader(&header)
	return &consensus.Block{Header: header, Transactions: txs}
}

func TestBlockChainAddBlockExtendsActiveChain(t *testing.T) {
	minerAddr := strings.Repeat("a", 66)
	bc := newTestBlockChain(t, minerAddr)

	tip, _ := bc.Active().Tip()
	block := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+10, &tip, nil)
	if err := bc.AddBlock(block, time.Now().Unix()+11); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if bc.Active().Length() != 2 {
		t.Fatalf("expected active chain length 2, got %d", bc.Active().Length())
	}
}

func TestBlockChainAddBlockIsIdempotentForKnownBlock(t *testing.T) {
	minerAddr := strings.Repeat("a", 66)
	bc := newTestBlockChain(t, minerAddr)

	tip, _ := bc.Active().Tip()
	block := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+10, &tip, nil)
	now := time.Now().Unix() + 11
	if err := bc.AddBlock(block, now); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if err := bc.AddBlock(block, now); err != nil {
		t.Fatalf("resubmitting an already-known block should be a no-op, got %v", err)
	}
	if bc.Active().Length() != 2 {
		t.Fatalf("expected length to stay at 2 after resubmission, got %d", bc.Active().Length())
	}
}

// TestBlockChainForksAndSwitchesActiveOnLongerChain builds a genesis, then
// two competing single-block forks off it (forkA submitted first, so it
// stays active on the tie), then a second block extending forkB so that
// branch becomes strictly longer and must become active.
func TestBlockChainForksAndSwitchesActiveOnLongerChain(t *testing.T) {
	minerAddr := strings.Repeat("a", 66)
	bc := newTestBlockChain(t, minerAddr)
	genesisTip, _ := bc.Active().Tip()

	forkA := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+10, &genesisTip, nil)
	forkB := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+20, &genesisTip, nil)

	now := time.Now().Unix() + 100
	if err := bc.AddBlock(forkA, now); err != nil {
		t.Fatalf("add forkA: %v", err)
	}
	if err := bc.AddBlock(forkB, now); err != nil {
		t.Fatalf("add forkB: %v", err)
	}
	if len(bc.chains) != 2 {
		t.Fatalf("expected two tracked chains after a fork, got %d", len(bc.chains))
	}
	// forkA was added first, so ties keep it active.
	activeHash := consensus.HeaderHash(&bc.Active().HeaderList[1])
	if activeHash != consensus.HeaderHash(&forkA.Header) {
		t.Fatalf("expected first-seen fork to remain active on a tie")
	}

	forkBChainIdx := 0
	for i, c := range bc.chains {
		tip, _ := c.Tip()
		if consensus.HeaderHash(&tip) == consensus.HeaderHash(&forkB.Header) {
			forkBChainIdx = i
		}
	}
	forkBExtension := buildChainBlock(t, bc.chains[forkBChainIdx], minerAddr, time.Now().Unix()+30, &forkB.Header, nil)
	if err := bc.AddBlock(forkBExtension, now+1); err != nil {
		t.Fatalf("extend forkB: %v", err)
	}
	if bc.Active().Length() != 3 {
		t.Fatalf("expected the now-longer forkB branch to become active, got length %d", bc.Active().Length())
	}
	activeTip, _ := bc.Active().Tip()
	if consensus.HeaderHash(&activeTip) != consensus.HeaderHash(&forkBExtension.Header) {
		t.Fatalf("expected active tip to be forkB's extension")
	}
}

func TestBlockChainPrunesStaleForkPastForkChainHeight(t *testing.T) {
	minerAddr := strings.Repeat("a", 66)
	bc := newTestBlockChain(t, minerAddr) // ForkChainHeight: 10 in newTestBlockChain
	genesisTip, _ := bc.Active().Tip()

	forkA := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+10, &genesisTip, nil)
	forkB := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+20, &genesisTip, nil)
	now := time.Now().Unix() + 100
	if err := bc.AddBlock(forkA, now); err != nil {
		t.Fatalf("add forkA: %v", err)
	}
	if err := bc.AddBlock(forkB, now); err != nil {
		t.Fatalf("add forkB: %v", err)
	}

	prev := forkA.Header
	for i := 0; i < 10; i++ {
		next := buildChainBlock(t, bc.chains[0], minerAddr, time.Now().Unix()+int64(40+i*10), &prev, nil)
		if err := bc.AddBlock(next, now+int64(i)+1); err != nil {
			t.Fatalf("extend forkA step %d: %v", i, err)
		}
		prev = next.Header
	}

	if len(bc.chains) != 1 {
		t.Fatalf("expected the stale forkB branch to be pruned, got %d tracked chains", len(bc.chains))
	}
	if _, ok := bc.store.GetBlock(consensus.HeaderHash(&forkB.Header)); ok {
		t.Fatalf("expected forkB's block to be evicted from the store once pruned")
	}
}

// TestBlockChainReorgRebuildsMempool builds a short chain A, admits a
// transaction spending A's own tip into the mempool, then grows a competing
// fork B past A so the active chain switches. After the switch, A's
// confirmed transaction (now orphaned, no longer confirmed anywhere) must be
// re-admitted to the mempool, while the still-pending transaction must
// remain.
func TestBlockChainReorgRebuildsMempool(t *testing.T) {
	minerAddr := strings.Repeat("a", 66)
	payee := strings.Repeat("d", 66)
	bc := newTestBlockChain(t, minerAddr) // CoinbaseMaturity: 1, ForkChainHeight: 10

	genesisHash := consensus.HeaderHash(&bc.Active().HeaderList[0])
	genesisBlock, ok := bc.store.GetBlock(genesisHash)
	if !ok {
		t.Fatalf("expected genesis block to be persisted")
	}
	genesisReward := genesisBlock.Transactions[0].Vout[0].Amount
	soGenesis := consensus.SingleOutput{Txid: consensus.TxID(&genesisBlock.Transactions[0]), Vout: 0}
	tx1 := consensus.Transaction{
		Version: 1,
		Fees:    1,
		Vin:     map[int]consensus.TxIn{0: {Payout: &soGenesis, Sig: "s", PubKey: minerAddr}},
		Vout:    map[int]consensus.TxOut{0: {Amount: genesisReward - 1, Address: payee}},
	}

	genesisTip, _ := bc.Active().Tip()
	// Build both competing height-1 blocks from the same genesis-length
	// chain snapshot before adding either: AddBlock mutates a directly
	// extended chain's headers in place, so bc.Active() would otherwise
	// reflect forkA1 by the time forkB1 needed to be built from genesis.
	forkA1 := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+10, &genesisTip, []consensus.Transaction{tx1})
	forkB1 := buildChainBlock(t, bc.Active(), minerAddr, time.Now().Unix()+20, &genesisTip, nil)

	now := time.Now().Unix() + 100
	if err := bc.AddBlock(forkA1, now); err != nil {
		t.Fatalf("add forkA1: %v", err)
	}

	forkA1Reward := forkA1.Transactions[0].Vout[0].Amount
	soForkA1 := consensus.SingleOutput{Txid: consensus.TxID(&forkA1.Transactions[0]), Vout: 0}
	tx3 := consensus.Transaction{
		Version: 1,
		Fees:    1,
		Vin:     map[int]consensus.TxIn{0: {Payout: &soForkA1, Sig: "s", PubKey: minerAddr}},
		Vout:    map[int]consensus.TxOut{0: {Amount: forkA1Reward - 1, Address: payee}},
	}
	if err := bc.AdmitTransaction(tx3, now+1); err != nil {
		t.Fatalf("admit tx3: %v", err)
	}
	if bc.Mempool().Len() != 1 {
		t.Fatalf("expected tx3 pending in the mempool, got %d", bc.Mempool().Len())
	}

	if err := bc.AddBlock(forkB1, now+2); err != nil {
		t.Fatalf("add forkB1: %v", err)
	}
	if bc.Active().Length() != 2 {
		t.Fatalf("expected forkA to remain active on a tie, got length %d", bc.Active().Length())
	}

	forkB1ChainIdx := 0
	for i, c := range bc.chains {
		tip, _ := c.Tip()
		if consensus.HeaderHash(&tip) == consensus.HeaderHash(&forkB1.Header) {
			forkB1ChainIdx = i
		}
	}
	forkB2 := buildChainBlock(t, bc.chains[forkB1ChainIdx], minerAddr, time.Now().Unix()+30, &forkB1.Header, nil)
	if err := bc.AddBlock(forkB2, now+3); err != nil {
		t.Fatalf("add forkB2: %v", err)
	}
	if bc.Active().Length() != 3 {
		t.Fatalf("expected forkB to become active after overtaking forkA, got length %d", bc.Active().Length())
	}

	snapshot := bc.Mempool().SnapshotByFeeDescending()
	if len(snapshot) != 2 {
		t.Fatalf("expected tx3 (still pending) plus tx1 (re-admitted as orphaned) in the mempool, got %d", len(snapshot))
	}
	tx1ID, tx3ID := consensus.TxID(&tx1), consensus.TxID(&tx3)
	var sawTx1, sawTx3 bool
	for i := range snapshot {
		switch consensus.TxID(&snapshot[i]) {
		case tx1ID:
			sawTx1 = true
		case tx3ID:
			sawTx3 = true
		}
	}
	if !sawTx1 {
		t.Fatalf("expected tx1 to be re-admitted once forkA1 was orphaned by the reorg")
	}
	if !sawTx3 {
		t.Fatalf("expected tx3 to remain pending in the mempool")
	}
}

func TestBlockChainAdmitTransactionAddsToMempool(t *testing.T) {
	minerAddr := strings.Repeat("a", 66)
	bc := newTestBlockChain(t, minerAddr)

	genesisHash := consensus.HeaderHash(&bc.Active().HeaderList[0])
	genesisBlock, ok := bc.store.GetBlock(genesisHash)
	if !ok {
		t.Fatalf("expected genesis block to be persisted")
	}
	so := consensus.SingleOutput{Txid: consensus.TxID(&genesisBlock.Transactions[0]), Vout: 0}
	spendAmount := genesisBlock.Transactions[0].Vout[0].Amount

	tx := consensus.Transaction{
		Version: 1,
		Fees:    1,
		Vin:     map[int]consensus.TxIn{0: {Payout: &so, Sig: "s", PubKey: minerAddr}},
		Vout:    map[int]consensus.TxOut{0: {Amount: spendAmount - 1, Address: strings.Repeat("b", 66)}},
	}
	if err := bc.AdmitTransaction(tx, time.Now().Unix()+1); err != nil {
		t.Fatalf("AdmitTransaction: %v", err)
	}
	if bc.Mempool().Len() != 1 {
		t.Fatalf("expected the transaction to land in the mempool, got %d entries", bc.Mempool().Len())
	}
}
