package consensus

import (
	"crypto/sha256"
	"encoding/hex"
)

// sha256Double is the double-SHA-256 primitive: the network's proof-of-work
// and identity hash function, matching original_source's
// hashlib.sha256(hashlib.sha256(s).digest()).hexdigest().
func sha256Double(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

// Dhash returns the lowercase hex double-SHA-256 digest of b.
func Dhash(b []byte) Hash {
	digest := sha256Double(b)
	return Hash(hex.EncodeToString(digest[:]))
}

// TxID returns the transaction's identity hash: the double-SHA-256 of its
// full canonical serialization (signatures included).
func TxID(tx *Transaction) Hash {
	return Dhash(CanonicalTransaction(tx))
}

// HeaderHash returns the block header's identity hash.
func HeaderHash(h *BlockHeader) Hash {
	return Dhash(CanonicalBlockHeader(h))
}

// SighashPreimage returns the canonical bytes a signature is computed over:
// the transaction with vin emptied entirely, keeping vout and metadata, per
// the signing rule in the transaction validation design.
func SighashPreimage(tx *Transaction) []byte {
	unsigned := *tx
	unsigned.Vin = map[int]TxIn{}
	return CanonicalTransaction(&unsigned)
}
