package consensus

import "sort"

// BlockSource resolves a header hash to the full block body, used when a
// chain is rebuilt from a header list (the soft-fork path in BlockChain).
type BlockSource interface {
	GetBlock(hash Hash) (*Block, bool)
}

// Chain is an ordered sequence of block headers together with the UTXO
// state and difficulty that result from applying them in order.
type Chain struct {
	Params      Params
	Verifier    SignatureVerifier
	HeaderList  []BlockHeader
	Utxo        *Utxo
	TargetDiff  uint64
	TotalIssued uint64
}

// NewChain starts an empty chain seeded with params.InitialTargetDifficulty,
// ready to accept a genesis block as its first header.
func NewChain(params Params, verifier SignatureVerifier) *Chain {
	return &Chain{
		Params:     params,
		Verifier:   verifier,
		HeaderList: nil,
		Utxo:       NewUtxo(),
		TargetDiff: params.InitialTargetDifficulty,
	}
}

func (c *Chain) Length() uint64 {
	return uint64(len(c.HeaderList))
}

func (c *Chain) Tip() (BlockHeader, bool) {
	if len(c.HeaderList) == 0 {
		return BlockHeader{}, false
	}
	return c.HeaderList[len(c.HeaderList)-1], true
}

func (c *Chain) CurrentBlockReward() uint64 {
	return CurrentBlockReward(c.Length(), c.TotalIssued)
}

// IsBlockValid runs every check in the block validation design against the
// chain's current state, without mutating it.
func (c *Chain) IsBlockValid(block *Block, nowUnix int64) error {
	_, err := c.validateBlock(block, nowUnix)
	return err
}

// validateBlock runs every check IsBlockValid promises and, in addition,
// applies block's transactions in order to a clone of c.Utxo, returning the
// resulting set on success. c.Utxo itself is never touched.
//
// Each transaction after the coinbase is checked against that running clone
// rather than against c.Utxo directly, so a second transaction in the block
// spending an output already spent earlier in the same block sees it
// missing (ErrMissingUTXO) instead of both transactions validating against
// the same unchanged pre-block state.
func (c *Chain) validateBlock(block *Block, nowUnix int64) (*Utxo, error) {
	if len(CanonicalBlock(block)) > maxBlockSizeBytes {
		return nil, txerr(ErrSizeExceeded, "serialized block exceeds max block size")
	}
	if len(block.Transactions) == 0 {
		return nil, txerr(ErrEmptyBlock, "block has no transactions")
	}
	for i, tx := range block.Transactions {
		if i == 0 {
			if !tx.IsCoinbase {
				return nil, txerr(ErrCoinbaseStructure, "first transaction is not coinbase")
			}
		} else if tx.IsCoinbase {
			return nil, txerr(ErrCoinbaseStructure, "non-first transaction is coinbase")
		}
		if err := tx.IsValid(nowUnix); err != nil {
			return nil, err
		}
	}
	if MerkleHash(block.Transactions) != block.Header.MerkleRoot {
		return nil, txerr(ErrMerkleMismatch, "merkle root mismatch")
	}

	if block.Header.TargetDifficulty < c.TargetDiff {
		return nil, txerr(ErrDifficultyTooLow, "header target_difficulty below chain difficulty")
	}
	if !IsProperDifficulty(HeaderHash(&block.Header), c.TargetDiff) {
		return nil, txerr(ErrPowInvalid, "header hash does not satisfy proof of work")
	}

	if block.Header.Timestamp > nowUnix+BlockMaxTimeFutureSecs {
		return nil, txerr(ErrTimestampFuture, "timestamp too far in the future")
	}
	if mtp, ok := c.medianTimePast(); ok && block.Header.Timestamp <= mtp {
		return nil, txerr(ErrTimestampTooOld, "timestamp not after median time past")
	}

	if block.Header.Height != c.Length() {
		return nil, txerr(ErrLinkageInvalid, "header height does not equal chain length")
	}
	if tip, ok := c.Tip(); ok {
		tipHash := HeaderHash(&tip)
		if block.Header.PrevBlockHash == nil || *block.Header.PrevBlockHash != tipHash {
			return nil, txerr(ErrLinkageInvalid, "prev_block_hash does not link to chain tip")
		}
	} else if block.Header.PrevBlockHash != nil {
		return nil, txerr(ErrLinkageInvalid, "genesis header must have no prev_block_hash")
	}

	scratch := c.Utxo.Clone()
	var feeSum uint64
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if i == 0 {
			applyTxToUtxo(scratch, tx, block.Header)
			continue
		}
		if err := tx.IsTransactionValid(scratch, c.Params, c.Length(), c.Verifier, nowUnix); err != nil {
			return nil, err
		}
		applyTxToUtxo(scratch, tx, block.Header)
		feeSum += tx.Fees
	}

	coinbase := block.Transactions[0]
	rewardOut, hasReward := coinbase.Vout[0]
	feeOut, hasFee := coinbase.Vout[1]
	if len(coinbase.Vout) != 2 || !hasReward || !hasFee {
		return nil, txerr(ErrCoinbaseStructure, "coinbase must have exactly outputs 0 and 1")
	}
	if feeOut.Amount != feeSum {
		return nil, txerr(ErrCoinbaseStructure, "coinbase fee output mismatch")
	}
	if rewardOut.Amount != c.CurrentBlockReward() {
		return nil, txerr(ErrCoinbaseReward, "coinbase reward output mismatch")
	}

	return scratch, nil
}

// medianTimePast returns the median timestamp of the last
// MedianTimePastWindow headers, and whether the chain is long enough for
// the rule to apply.
func (c *Chain) medianTimePast() (int64, bool) {
	if len(c.HeaderList) < MedianTimePastWindow {
		return 0, false
	}
	window := c.HeaderList[len(c.HeaderList)-MedianTimePastWindow:]
	ts := make([]int64, len(window))
	for i, h := range window {
		ts[i] = h.Timestamp
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	return ts[len(ts)/2], true
}

// AddBlock validates block and, on success, appends it, adopts the UTXO set
// that resulted from validating it, recomputes difficulty, and tracks
// issuance. The chain is left untouched on any validation failure.
func (c *Chain) AddBlock(block *Block, nowUnix int64) error {
	utxo, err := c.validateBlock(block, nowUnix)
	if err != nil {
		return err
	}
	c.Utxo = utxo
	c.HeaderList = append(c.HeaderList, block.Header)
	c.TotalIssued += block.Transactions[0].Vout[0].Amount
	c.updateTargetDifficulty()
	return nil
}

// applyTxToUtxo removes tx's spent inputs and adds its new outputs to utxo,
// in that order. Called once per transaction while validating a block, so
// every later transaction in the same block sees the effect of every
// earlier one.
func applyTxToUtxo(utxo *Utxo, tx *Transaction, createdBy BlockHeader) {
	txid := TxID(tx)
	for _, idx := range sortedIndexesTxIn(tx.Vin) {
		in := tx.Vin[idx]
		if in.Payout != nil {
			utxo.Remove(*in.Payout)
		}
	}
	for _, idx := range sortedIndexesTxOut(tx.Vout) {
		out := tx.Vout[idx]
		utxo.Set(SingleOutput{Txid: txid, Vout: idx}, out, createdBy, tx.IsCoinbase)
	}
}

// updateTargetDifficulty recomputes TargetDiff every
// BLOCK_DIFFICULTY_UPDATE_INTERVAL blocks, using the elapsed time between
// the last header and the header BLOCK_DIFFICULTY_UPDATE_INTERVAL back.
func (c *Chain) updateTargetDifficulty() {
	n := len(c.HeaderList)
	if n == 0 || uint64(n)%BlockDifficultyUpdateInterval != 0 {
		return
	}
	first := n - 1 - BlockDifficultyUpdateInterval
	if first < 0 {
		return
	}
	elapsed := c.HeaderList[n-1].Timestamp - c.HeaderList[first].Timestamp
	c.TargetDiff = RetargetDifficulty(c.TargetDiff, elapsed)
}

// BuildFromHeaderList materializes a fresh chain by replaying, in order,
// the full blocks referenced by headers (fetched from source) through
// AddBlock. Used to fork a new candidate chain off a common ancestor.
func BuildFromHeaderList(headers []BlockHeader, source BlockSource, params Params, verifier SignatureVerifier, nowUnix int64) (*Chain, error) {
	c := NewChain(params, verifier)
	for _, h := range headers {
		hash := HeaderHash(&h)
		block, ok := source.GetBlock(hash)
		if !ok {
			return nil, txerr(ErrMissingUTXO, "block store missing header referenced by fork")
		}
		if err := c.AddBlock(block, nowUnix); err != nil {
			return nil, err
		}
	}
	return c, nil
}
