package consensus

import (
	"strings"
	"testing"
)

func sampleTransaction() Transaction {
	payout := SingleOutput{Txid: Hash(strings.Repeat("a", HashLengthHex)), Vout: 2}
	return Transaction{
		IsCoinbase: false,
		Version:    1,
		Timestamp:  1700000000,
		Locktime:   0,
		Fees:       10,
		Vin: map[int]TxIn{
			0: {Payout: &payout, Sig: "deadbeef", PubKey: "cafebabe"},
		},
		Vout: map[int]TxOut{
			0: {Amount: 100, Address: "addr-a"},
			1: {Amount: 90, Address: "addr-b"},
		},
	}
}

func TestCanonicalTransactionRoundTrip(t *testing.T) {
	tx := sampleTransaction()
	raw := CanonicalTransaction(&tx)
	got, err := ParseTransaction(raw)
	if err != nil {
		t.Fatalf("ParseTransaction: %v", err)
	}
	if got.Timestamp != tx.Timestamp || got.Fees != tx.Fees || len(got.Vin) != 1 || len(got.Vout) != 2 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Vin[0].Payout == nil || got.Vin[0].Payout.Vout != 2 {
		t.Fatalf("payout mismatch: %+v", got.Vin[0])
	}
}

func TestParseTransactionRejectsTrailingBytes(t *testing.T) {
	tx := sampleTransaction()
	raw := append(CanonicalTransaction(&tx), 0xff)
	if _, err := ParseTransaction(raw); err == nil {
		t.Fatalf("expected trailing-bytes rejection")
	}
}

func TestCanonicalTransactionIsDeterministic(t *testing.T) {
	tx := sampleTransaction()
	a := CanonicalTransaction(&tx)
	b := CanonicalTransaction(&tx)
	if string(a) != string(b) {
		t.Fatalf("expected identical encodings")
	}
}

func TestCanonicalBlockRoundTrip(t *testing.T) {
	coinbase := Transaction{
		IsCoinbase: true,
		Version:    1,
		Vin:        map[int]TxIn{0: {}},
		Vout:       map[int]TxOut{0: {Amount: 50, Address: "miner"}, 1: {Amount: 0, Address: "miner"}},
	}
	tx := sampleTransaction()
	block := &Block{
		Header: BlockHeader{
			Version:          1,
			Height:           1,
			MerkleRoot:       MerkleHash([]Transaction{coinbase, tx}),
			Timestamp:        1700000001,
			TargetDifficulty: 5,
			Nonce:            42,
		},
		Transactions: []Transaction{coinbase, tx},
	}
	raw := CanonicalBlock(block)
	got, err := ParseBlock(raw)
	if err != nil {
		t.Fatalf("ParseBlock: %v", err)
	}
	if got.Header.Nonce != 42 || len(got.Transactions) != 2 {
		t.Fatalf("round trip mismatch: %+v", got.Header)
	}
}

func TestCanonicalSingleOutputRoundTrip(t *testing.T) {
	so := SingleOutput{Txid: Hash(strings.Repeat("9", HashLengthHex)), Vout: 7}
	raw := CanonicalSingleOutput(so)
	got, err := ParseSingleOutput(raw)
	if err != nil {
		t.Fatalf("ParseSingleOutput: %v", err)
	}
	if got != so {
		t.Fatalf("expected %+v, got %+v", so, got)
	}
}

func TestCanonicalBlockHeaderOptionalHashRoundTrip(t *testing.T) {
	prev := Hash(strings.Repeat("b", HashLengthHex))
	h := BlockHeader{
		Version:          1,
		Height:           3,
		PrevBlockHash:    &prev,
		MerkleRoot:       Hash(strings.Repeat("c", HashLengthHex)),
		Timestamp:        10,
		TargetDifficulty: 1,
		Nonce:            0,
	}
	raw := CanonicalBlockHeader(&h)
	got, err := ParseBlockHeader(raw)
	if err != nil {
		t.Fatalf("ParseBlockHeader: %v", err)
	}
	if got.PrevBlockHash == nil || *got.PrevBlockHash != prev {
		t.Fatalf("expected prev hash to round-trip, got %+v", got.PrevBlockHash)
	}

	h.PrevBlockHash = nil
	raw = CanonicalBlockHeader(&h)
	got, err = ParseBlockHeader(raw)
	if err != nil {
		t.Fatalf("ParseBlockHeader (nil prev): %v", err)
	}
	if got.PrevBlockHash != nil {
		t.Fatalf("expected nil prev hash to round-trip as nil")
	}
}
