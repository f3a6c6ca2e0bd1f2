package consensus

import "fmt"

// This file implements the canonical, deterministic byte encoding used both
// as the preimage for Dhash and as the wire representation exchanged by
// peers (the "serialized transaction"/"serialized block" bodies of section
// 6). Every variable-length field is CompactSize length-prefixed so two
// distinct values can never serialize to the same byte stream.

func appendHash(dst []byte, h Hash) []byte {
	return appendString(dst, string(h))
}

func readHash(buf []byte, off *int) (Hash, error) {
	s, err := readString(buf, off)
	if err != nil {
		return "", err
	}
	return Hash(s), nil
}

func appendOptionalHash(dst []byte, h *Hash) []byte {
	if h == nil {
		return append(dst, 0)
	}
	dst = append(dst, 1)
	return appendHash(dst, *h)
}

func readOptionalHash(buf []byte, off *int) (*Hash, error) {
	if *off >= len(buf) {
		return nil, txerr(ErrParse, "optional hash: truncated")
	}
	present := buf[*off]
	*off++
	if present == 0 {
		return nil, nil
	}
	h, err := readHash(buf, off)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// CanonicalSingleOutput encodes a SingleOutput as txid || vout.
func CanonicalSingleOutput(so SingleOutput) []byte {
	out := appendHash(nil, so.Txid)
	out = appendI32(out, so.Vout)
	return out
}

func ParseSingleOutput(buf []byte) (SingleOutput, error) {
	off := 0
	txid, err := readHash(buf, &off)
	if err != nil {
		return SingleOutput{}, err
	}
	vout, err := readI32(buf, &off)
	if err != nil {
		return SingleOutput{}, err
	}
	if off != len(buf) {
		return SingleOutput{}, txerr(ErrParse, "single_output: trailing bytes")
	}
	return SingleOutput{Txid: txid, Vout: vout}, nil
}

func appendTxOut(dst []byte, o TxOut) []byte {
	dst = appendU64(dst, o.Amount)
	dst = appendString(dst, o.Address)
	return dst
}

func readTxOut(buf []byte, off *int) (TxOut, error) {
	amount, err := readU64(buf, off)
	if err != nil {
		return TxOut{}, err
	}
	addr, err := readString(buf, off)
	if err != nil {
		return TxOut{}, err
	}
	return TxOut{Amount: amount, Address: addr}, nil
}

func appendTxIn(dst []byte, in TxIn) []byte {
	dst = appendOptionalHash(dst, payoutTxid(in.Payout))
	if in.Payout != nil {
		dst = appendI32(dst, in.Payout.Vout)
	}
	dst = appendString(dst, in.Sig)
	dst = appendString(dst, in.PubKey)
	return dst
}

func payoutTxid(so *SingleOutput) *Hash {
	if so == nil {
		return nil
	}
	return &so.Txid
}

func readTxIn(buf []byte, off *int) (TxIn, error) {
	txid, err := readOptionalHash(buf, off)
	if err != nil {
		return TxIn{}, err
	}
	var payout *SingleOutput
	if txid != nil {
		vout, err := readI32(buf, off)
		if err != nil {
			return TxIn{}, err
		}
		payout = &SingleOutput{Txid: *txid, Vout: vout}
	}
	sig, err := readString(buf, off)
	if err != nil {
		return TxIn{}, err
	}
	pubKey, err := readString(buf, off)
	if err != nil {
		return TxIn{}, err
	}
	return TxIn{Payout: payout, Sig: sig, PubKey: pubKey}, nil
}

// CanonicalTransaction encodes tx in a fixed field order: is_coinbase,
// version, timestamp, locktime, fees, vin (count + ascending index/value
// pairs), vout (count + ascending index/value pairs).
func CanonicalTransaction(tx *Transaction) []byte {
	out := make([]byte, 0, 128)
	if tx.IsCoinbase {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	out = appendI32(out, tx.Version)
	out = appendI64(out, tx.Timestamp)
	out = appendI64(out, tx.Locktime)
	out = appendU64(out, tx.Fees)

	vinIdx := sortedIndexesTxIn(tx.Vin)
	out = appendCompactSize(out, uint64(len(vinIdx)))
	for _, i := range vinIdx {
		out = appendI32(out, i)
		out = appendTxIn(out, tx.Vin[i])
	}

	voutIdx := sortedIndexesTxOut(tx.Vout)
	out = appendCompactSize(out, uint64(len(voutIdx)))
	for _, i := range voutIdx {
		out = appendI32(out, i)
		out = appendTxOut(out, tx.Vout[i])
	}
	return out
}

// ParseTransaction decodes the canonical form produced by
// CanonicalTransaction, returning an error unless every byte is consumed.
func ParseTransaction(buf []byte) (*Transaction, error) {
	off := 0
	tx := &Transaction{}

	if off >= len(buf) {
		return nil, txerr(ErrParse, "tx: truncated")
	}
	tx.IsCoinbase = buf[off] != 0
	off++

	var err error
	if tx.Version, err = readI32(buf, &off); err != nil {
		return nil, err
	}
	if tx.Timestamp, err = readI64(buf, &off); err != nil {
		return nil, err
	}
	if tx.Locktime, err = readI64(buf, &off); err != nil {
		return nil, err
	}
	if tx.Fees, err = readU64(buf, &off); err != nil {
		return nil, err
	}

	vinCount, err := readCompactSize(buf, &off)
	if err != nil {
		return nil, err
	}
	tx.Vin = make(map[int]TxIn, vinCount)
	for i := uint64(0); i < vinCount; i++ {
		idx, err := readI32(buf, &off)
		if err != nil {
			return nil, err
		}
		in, err := readTxIn(buf, &off)
		if err != nil {
			return nil, err
		}
		tx.Vin[idx] = in
	}

	voutCount, err := readCompactSize(buf, &off)
	if err != nil {
		return nil, err
	}
	tx.Vout = make(map[int]TxOut, voutCount)
	for i := uint64(0); i < voutCount; i++ {
		idx, err := readI32(buf, &off)
		if err != nil {
			return nil, err
		}
		o, err := readTxOut(buf, &off)
		if err != nil {
			return nil, err
		}
		tx.Vout[idx] = o
	}

	if off != len(buf) {
		return nil, txerr(ErrParse, "tx: trailing bytes")
	}
	return tx, nil
}

// CanonicalBlockHeader encodes a header in fixed field order.
func CanonicalBlockHeader(h *BlockHeader) []byte {
	out := make([]byte, 0, 128)
	out = appendI32(out, h.Version)
	out = appendU64(out, h.Height)
	out = appendOptionalHash(out, h.PrevBlockHash)
	out = appendHash(out, h.MerkleRoot)
	out = appendI64(out, h.Timestamp)
	out = appendU64(out, h.TargetDifficulty)
	out = appendU64(out, h.Nonce)
	return out
}

func ParseBlockHeader(buf []byte) (*BlockHeader, error) {
	off := 0
	h := &BlockHeader{}
	var err error
	if h.Version, err = readI32(buf, &off); err != nil {
		return nil, err
	}
	if h.Height, err = readU64(buf, &off); err != nil {
		return nil, err
	}
	if h.PrevBlockHash, err = readOptionalHash(buf, &off); err != nil {
		return nil, err
	}
	if h.MerkleRoot, err = readHash(buf, &off); err != nil {
		return nil, err
	}
	if h.Timestamp, err = readI64(buf, &off); err != nil {
		return nil, err
	}
	if h.TargetDifficulty, err = readU64(buf, &off); err != nil {
		return nil, err
	}
	if h.Nonce, err = readU64(buf, &off); err != nil {
		return nil, err
	}
	if off != len(buf) {
		return nil, txerr(ErrParse, "header: trailing bytes")
	}
	return h, nil
}

// CanonicalBlock encodes a full block: header followed by its transactions.
func CanonicalBlock(b *Block) []byte {
	out := CanonicalBlockHeader(&b.Header)
	out = appendCompactSize(out, uint64(len(b.Transactions)))
	for i := range b.Transactions {
		txBytes := CanonicalTransaction(&b.Transactions[i])
		out = appendCompactSize(out, uint64(len(txBytes)))
		out = append(out, txBytes...)
	}
	return out
}

func ParseBlock(buf []byte) (*Block, error) {
	off := 0
	// The header has no length prefix of its own; a dedicated header-length
	// pass finds where it ends, and the header decoder is then handed
	// exactly that prefix.
	headerLen, headerErr := blockHeaderLen(buf)
	if headerErr != nil {
		return nil, headerErr
	}
	header, err := ParseBlockHeader(buf[:headerLen])
	if err != nil {
		return nil, err
	}
	off = headerLen

	count, err := readCompactSize(buf, &off)
	if err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		n, err := readCompactSize(buf, &off)
		if err != nil {
			return nil, err
		}
		if uint64(off)+n > uint64(len(buf)) {
			return nil, txerr(ErrParse, "block: truncated tx")
		}
		tx, err := ParseTransaction(buf[off : uint64(off)+n])
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
		off += int(n)
	}
	if off != len(buf) {
		return nil, txerr(ErrParse, "block: trailing bytes")
	}
	if len(txs) == 0 {
		return nil, txerr(ErrEmptyBlock, "block: no transactions")
	}
	return &Block{Header: *header, Transactions: txs}, nil
}

// blockHeaderLen determines how many leading bytes of buf make up a
// BlockHeader by re-walking the same field sequence CanonicalBlockHeader
// writes, without allocating a throwaway struct.
func blockHeaderLen(buf []byte) (int, error) {
	off := 0
	if _, err := readI32(buf, &off); err != nil {
		return 0, err
	}
	if _, err := readU64(buf, &off); err != nil {
		return 0, err
	}
	if _, err := readOptionalHash(buf, &off); err != nil {
		return 0, err
	}
	if _, err := readHash(buf, &off); err != nil {
		return 0, err
	}
	if _, err := readI64(buf, &off); err != nil {
		return 0, err
	}
	if _, err := readU64(buf, &off); err != nil {
		return 0, err
	}
	if _, err := readU64(buf, &off); err != nil {
		return 0, err
	}
	if off > len(buf) {
		return 0, fmt.Errorf("header: truncated")
	}
	return off, nil
}
