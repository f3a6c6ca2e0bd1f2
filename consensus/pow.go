package consensus

import (
	"encoding/hex"
	"math/big"
)

// IsProperDifficulty reports whether h, interpreted as a big-endian 256-bit
// integer, is strictly less than MAX_TARGET / targetDifficulty.
func IsProperDifficulty(h Hash, targetDifficulty uint64) bool {
	raw, err := hex.DecodeString(string(h))
	if err != nil || len(raw) != 32 {
		return false
	}
	hi := new(big.Int).SetBytes(raw)
	bound := boundForDifficulty(targetDifficulty)
	return hi.Cmp(bound) < 0
}

// boundForDifficulty returns floor(MAX_TARGET / targetDifficulty). A
// targetDifficulty of zero is treated as 1: difficulty is never allowed to
// reach zero by RetargetDifficulty, but a defensive caller gets the loosest
// legal bound rather than a divide-by-zero.
func boundForDifficulty(targetDifficulty uint64) *big.Int {
	if targetDifficulty == 0 {
		targetDifficulty = 1
	}
	return new(big.Int).Div(MaxTarget, new(big.Int).SetUint64(targetDifficulty))
}

// RetargetDifficulty computes the next target_difficulty after an interval
// of BLOCK_DIFFICULTY_UPDATE_INTERVAL blocks elapsed in elapsedSecs seconds.
// new = floor(old * (AVERAGE_BLOCK_MINE_INTERVAL * interval) / elapsed),
// lower-clamped to 1.
func RetargetDifficulty(old uint64, elapsedSecs int64) uint64 {
	if elapsedSecs <= 0 {
		elapsedSecs = 1
	}
	numerator := new(big.Int).Mul(
		new(big.Int).SetUint64(old),
		big.NewInt(int64(AverageBlockMineIntervalSecs)*int64(BlockDifficultyUpdateInterval)),
	)
	next := new(big.Int).Div(numerator, big.NewInt(elapsedSecs))
	if next.Sign() < 1 {
		return 1
	}
	if !next.IsUint64() {
		return ^uint64(0)
	}
	return next.Uint64()
}
