package consensus

// SignatureVerifier checks a signature over a message against a public key.
// Both pubKeyHex and sigHex are opaque hex strings as carried on the wire;
// the concrete scheme (secp256k1/ECDSA) is supplied by the walletcrypto
// package so consensus stays independent of any signing library.
type SignatureVerifier interface {
	Verify(pubKeyHex string, message []byte, sigHex string) bool
}

const maxBlockSizeBytes = MaxBlockSizeKB * 1024

// IsValid runs the context-free structural checks on tx: non-empty vin and
// vout, a bounded serialized size, in-range amounts, well-formed inputs, and
// a locktime that has already been reached.
func (tx *Transaction) IsValid(nowUnix int64) error {
	if len(tx.Vin) == 0 {
		return txerr(ErrEmptyVin, "vin is empty")
	}
	if len(tx.Vout) == 0 {
		return txerr(ErrEmptyVout, "vout is empty")
	}
	if len(CanonicalTransaction(tx)) > maxBlockSizeBytes {
		return txerr(ErrSizeExceeded, "serialized transaction exceeds max block size")
	}
	for _, idx := range sortedIndexesTxOut(tx.Vout) {
		amount := tx.Vout[idx].Amount
		if amount > MaxCoins {
			return txerr(ErrAmountOutRange, "output amount out of range")
		}
	}
	for _, idx := range sortedIndexesTxIn(tx.Vin) {
		in := tx.Vin[idx]
		if tx.IsCoinbase {
			if in.Payout != nil {
				return txerr(ErrBadInput, "coinbase input must have no payout")
			}
			continue
		}
		if in.Payout == nil {
			return txerr(ErrBadInput, "non-coinbase input missing payout")
		}
		if len(in.Payout.Txid) != HashLengthHex {
			return txerr(ErrBadInput, "payout txid is not 64 hex characters")
		}
		if in.Payout.Vout < 0 {
			return txerr(ErrBadInput, "payout vout is negative")
		}
		if in.Sig == "" || in.PubKey == "" {
			return txerr(ErrBadInput, "non-coinbase input missing sig or pub_key")
		}
	}
	if tx.Locktime > nowUnix {
		return txerr(ErrLocktime, "locktime not reached")
	}
	return nil
}

// IsTransactionValid runs the chain-context checks on tx: IsValid, UTXO
// presence and coinbase maturity for every input, signature verification
// against the referenced output's address, and value conservation.
func (tx *Transaction) IsTransactionValid(utxo *Utxo, params Params, chainLength uint64, verifier SignatureVerifier, nowUnix int64) error {
	if err := tx.IsValid(nowUnix); err != nil {
		return err
	}

	var sumIn uint64
	for _, idx := range sortedIndexesTxIn(tx.Vin) {
		in := tx.Vin[idx]
		if tx.IsCoinbase {
			continue
		}
		entry, ok := utxo.Get(*in.Payout)
		if !ok {
			return txerr(ErrMissingUTXO, "referenced output not found in utxo")
		}
		if entry.CreatedByCoinbase {
			maturedAt := entry.CreatedBy.Height + params.CoinbaseMaturity
			if chainLength < maturedAt {
				return txerr(ErrCoinbaseImmature, "coinbase output not yet mature")
			}
		}
		if in.PubKey != entry.Output.Address {
			return txerr(ErrSignatureInvalid, "pub_key does not match output address")
		}
		preimage := SighashPreimage(tx)
		if verifier == nil || !verifier.Verify(in.PubKey, preimage, in.Sig) {
			return txerr(ErrSignatureInvalid, "signature verification failed")
		}
		if sumIn > MaxCoins-entry.Output.Amount {
			return txerr(ErrAmountOutRange, "sum of inputs out of range")
		}
		sumIn += entry.Output.Amount
	}

	var sumOut uint64
	for _, idx := range sortedIndexesTxOut(tx.Vout) {
		amount := tx.Vout[idx].Amount
		if sumOut > MaxCoins-amount {
			return txerr(ErrAmountOutRange, "sum of outputs out of range")
		}
		sumOut += amount
	}
	if sumIn > MaxCoins || sumOut > MaxCoins {
		return txerr(ErrAmountOutRange, "input or output sum out of range")
	}

	if !tx.IsCoinbase {
		if sumIn <= sumOut {
			return txerr(ErrValueConservation, "inputs do not exceed outputs")
		}
		if sumIn-sumOut != tx.Fees {
			return txerr(ErrFeesMismatch, "fees do not match input/output difference")
		}
	}
	return nil
}
