package consensus

import "strings"

// emptyMerkleRoot is the sentinel merkle root of a transaction list with no
// elements. It never arises in a valid block (vout/vin non-empty, coinbase
// required) but is exercised directly in tests of MerkleHash.
var emptyMerkleRoot = Hash(strings.Repeat("F", HashLengthHex))

// MerkleHash computes the merkle root over an ordered transaction list.
// Each level pairs adjacent hashes and combines them with Dhash(left++right);
// an odd-length level duplicates its last element before pairing, repeated
// at every level until a single hash remains.
func MerkleHash(txs []Transaction) Hash {
	if len(txs) == 0 {
		return emptyMerkleRoot
	}
	if len(txs) == 1 {
		return TxID(&txs[0])
	}

	level := make([]Hash, len(txs))
	for i := range txs {
		level[i] = TxID(&txs[i])
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, Dhash([]byte(string(level[i])+string(level[i+1]))))
		}
		level = next
	}
	return level[0]
}
