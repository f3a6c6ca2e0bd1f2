// Package wallet manages a single signing key on disk and builds the
// signed transactions the node's mempool accepts.
package wallet

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mr-tron/base58"

	"github.com/somechain-network/node/consensus"
	"github.com/somechain-network/node/walletcrypto"
)

// Wallet owns one secp256k1 key pair. The on-wire address (TxOut.Address,
// TxIn.PubKey) is the raw hex-encoded compressed public key; DisplayAddress
// renders a shorter base58 form for humans, not used in consensus data.
type Wallet struct {
	key *walletcrypto.PrivateKey
}

type walletFile struct {
	PrivateKeyHex string `json:"private_key_hex"`
}

// Generate creates a fresh wallet with a new random key.
func Generate() (*Wallet, error) {
	key, err := walletcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

// Load reads a wallet key from path, written previously by Save.
func Load(path string) (*Wallet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var f walletFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	keyBytes, err := hex.DecodeString(f.PrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decode wallet key: %w", err)
	}
	key, err := walletcrypto.PrivateKeyFromBytes(keyBytes)
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

// Save persists the wallet key to path with an atomic write: the new
// contents land in a temp file first, and only a successful rename makes
// them visible, so a crash mid-write never leaves a truncated key file.
func (w *Wallet) Save(path string) error {
	raw, err := json.MarshalIndent(walletFile{PrivateKeyHex: hex.EncodeToString(w.key.Bytes())}, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, raw, 0o600)
}

func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Address is the wallet's on-wire identity: the hex compressed public key,
// used verbatim as TxOut.Address and TxIn.PubKey.
func (w *Wallet) Address() string {
	return w.key.PublicKeyHex()
}

// DisplayAddress renders Address as base58, a shorter form for humans that
// never appears in consensus-critical data.
func (w *Wallet) DisplayAddress() string {
	raw, err := hex.DecodeString(w.Address())
	if err != nil {
		return w.Address()
	}
	return base58.Encode(raw)
}

// SpendRequest describes one output a new transaction should spend and the
// outputs it should create; Fees is computed by the caller as the
// difference between the spent amount and the sum of the new outputs.
type SpendRequest struct {
	Spend   consensus.SingleOutput
	Spent   consensus.TxOut
	Outputs map[int]consensus.TxOut
	Fees    uint64
	Locktime int64
}

// BuildAndSign constructs a single-input transaction spending req.Spend and
// paying req.Outputs, signing it with the wallet's key over the sighash
// preimage (the transaction with vin emptied).
func (w *Wallet) BuildAndSign(req SpendRequest) (*consensus.Transaction, error) {
	tx := &consensus.Transaction{
		IsCoinbase: false,
		Version:    1,
		Timestamp:  time.Now().Unix(),
		Locktime:   req.Locktime,
		Fees:       req.Fees,
		Vin: map[int]consensus.TxIn{
			0: {Payout: &req.Spend, PubKey: w.Address()},
		},
		Vout: req.Outputs,
	}
	preimage := consensus.SighashPreimage(tx)
	sig, err := w.key.Sign(preimage)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	in := tx.Vin[0]
	in.Sig = sig
	tx.Vin[0] = in
	return tx, nil
}
