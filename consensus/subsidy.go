package consensus

// CurrentBlockReward computes current_block_reward() for a chain of the
// given length (number of blocks mined so far, i.e. the height the next
// block will occupy) and total issuance to date. Once totalIssued reaches
// MAX_COINS the reward permanently drops to zero.
func CurrentBlockReward(length uint64, totalIssued uint64) uint64 {
	if totalIssued >= MaxCoins {
		return 0
	}
	halvings := length / RewardUpdateInterval
	if halvings >= 64 {
		return 0
	}
	return InitialBlockReward >> halvings
}
