package consensus

// Network genesis parameters. Every peer must derive the identical genesis
// block or no two nodes can ever agree on a common chain prefix.
const (
	genesisTimestamp = 1704067200 // 2024-01-01T00:00:00Z

	// genesisOwnerAddress is the founder public key paid by the genesis
	// coinbase. The matching private key was never published, so the
	// genesis outputs are unspendable in practice.
	genesisOwnerAddress = "02b463b1bbf6ff663aaf2e5ba138cf6c9dbbea01e3cb235c42ac3682a279aebc6d"
)

// DefaultGenesisBlock returns the network's shared genesis block for the
// given parameter set.
func DefaultGenesisBlock(params Params) *Block {
	return GenesisBlock(genesisOwnerAddress, genesisTimestamp, params.InitialTargetDifficulty)
}

// GenesisBlock constructs the fixed first block of a chain: one coinbase
// transaction paying current_block_reward() at height zero (= the
// INITIAL_BLOCK_REWARD, matching the end-to-end scenarios' fixture value of
// 5,000,000,000) to ownerAddress, with no fees, and no prev_block_hash.
func GenesisBlock(ownerAddress string, timestamp int64, targetDifficulty uint64) *Block {
	tx := Transaction{
		IsCoinbase: true,
		Version:    1,
		Timestamp:  timestamp,
		Locktime:   0,
		Fees:       0,
		Vin: map[int]TxIn{
			0: {Payout: nil, Sig: "", PubKey: ""},
		},
		Vout: map[int]TxOut{
			0: {Amount: CurrentBlockReward(0, 0), Address: ownerAddress},
			1: {Amount: 0, Address: ownerAddress},
		},
	}
	txs := []Transaction{tx}
	header := BlockHeader{
		Version:          1,
		Height:           0,
		PrevBlockHash:    nil,
		MerkleRoot:       MerkleHash(txs),
		Timestamp:        timestamp,
		TargetDifficulty: targetDifficulty,
		Nonce:            0,
	}
	return &Block{Header: header, Transactions: txs}
}
