package consensus

import "math/big"

// Consensus constants. Values mirror spec section 6 of the network's design
// document; peers must agree on all of them.
const (
	HashLengthHex = 64

	MaxBlockSizeKB = 4096

	// MaxCoins is the maximum representable supply, in smallest units.
	MaxCoins = 21_000_000 * 100_000_000

	InitialBlockReward = 50 * 100_000_000

	RewardUpdateInterval = 20_000

	BlockMaxTimeFutureSecs = 7200

	BlockDifficultyUpdateInterval = 1024

	AverageBlockMineIntervalSecs = 600

	// MedianTimePastWindow is the number of trailing headers whose
	// timestamps are used to compute the median-time-past bound.
	MedianTimePastWindow = 11
)

// Network-tunable parameters. These must be uniform across peers but are not
// hardwired, since an implementation may run a devnet with faster blocks.
type Params struct {
	// CoinbaseMaturity is the number of confirmations a coinbase output
	// needs before it becomes spendable (the output is spendable once
	// the chain has advanced >= CoinbaseMaturity blocks past it).
	CoinbaseMaturity uint64

	// ForkChainHeight is the number of blocks behind the active tip a
	// side chain is kept alive for before being pruned.
	ForkChainHeight uint64

	// InitialTargetDifficulty seeds Chain.TargetDiff before the
	// first retarget boundary.
	InitialTargetDifficulty uint64
}

// DefaultParams returns the parameter set used by the reference node and
// its tests.
func DefaultParams() Params {
	return Params{
		CoinbaseMaturity:        100,
		ForkChainHeight:         50,
		InitialTargetDifficulty: 1,
	}
}

// MaxTarget is the highest (easiest) possible proof-of-work target: a
// 256-bit integer with every bit set.
var MaxTarget = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}()
