package store

import (
	"strings"
	"testing"

	"github.com/somechain-network/node/consensus"
)

func testBlock() *consensus.Block {
	return consensus.GenesisBlock(strings.Repeat("a", 66), 1231006505, 1)
}

func TestPutGetBlockRoundTrip(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	block := testBlock()
	hash := consensus.HeaderHash(&block.Header)
	if err := db.PutBlock(hash, block); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}

	got, ok := db.GetBlock(hash)
	if !ok {
		t.Fatalf("expected block to be found")
	}
	if got.Header.MerkleRoot != block.Header.MerkleRoot {
		t.Fatalf("merkle root mismatch after round trip")
	}
}

func TestGetBlockMissing(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, ok := db.GetBlock(consensus.Hash(strings.Repeat("0", 64))); ok {
		t.Fatalf("expected no block for unknown hash")
	}
}

func TestDeleteBlock(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	block := testBlock()
	hash := consensus.HeaderHash(&block.Header)
	if err := db.PutBlock(hash, block); err != nil {
		t.Fatalf("PutBlock: %v", err)
	}
	if err := db.DeleteBlock(hash); err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if _, ok := db.GetBlock(hash); ok {
		t.Fatalf("expected block to be gone after delete")
	}
}
