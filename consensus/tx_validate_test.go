package consensus

import "testing"

type fixedVerifier bool

func (f fixedVerifier) Verify(string, []byte, string) bool { return bool(f) }

func TestTransactionIsValidRejectsEmptyVin(t *testing.T) {
	tx := Transaction{Vout: map[int]TxOut{0: {Amount: 1}}}
	if err := tx.IsValid(0); CodeOf(err) != ErrEmptyVin {
		t.Fatalf("expected ERR_EMPTY_VIN, got %v", err)
	}
}

func TestTransactionIsValidRejectsEmptyVout(t *testing.T) {
	tx := Transaction{Vin: map[int]TxIn{0: {Payout: &SingleOutput{}, Sig: "s", PubKey: "k"}}}
	if err := tx.IsValid(0); CodeOf(err) != ErrEmptyVout {
		t.Fatalf("expected ERR_EMPTY_VOUT, got %v", err)
	}
}

func TestTransactionIsValidRejectsFutureLocktime(t *testing.T) {
	tx := Transaction{
		Locktime: 100,
		Vin:      map[int]TxIn{0: {Payout: &SingleOutput{Txid: Hash(zeros()), Vout: 0}, Sig: "s", PubKey: "k"}},
		Vout:     map[int]TxOut{0: {Amount: 1}},
	}
	if err := tx.IsValid(50); CodeOf(err) != ErrLocktime {
		t.Fatalf("expected ERR_LOCKTIME_NOT_REACHED, got %v", err)
	}
	if err := tx.IsValid(100); err != nil {
		t.Fatalf("expected locktime reached exactly at now to be valid, got %v", err)
	}
}

func TestTransactionIsValidRejectsCoinbaseWithPayout(t *testing.T) {
	tx := Transaction{
		IsCoinbase: true,
		Vin:        map[int]TxIn{0: {Payout: &SingleOutput{}}},
		Vout:       map[int]TxOut{0: {Amount: 1}},
	}
	if err := tx.IsValid(0); CodeOf(err) != ErrBadInput {
		t.Fatalf("expected ERR_BAD_INPUT, got %v", err)
	}
}

func zeros() string {
	b := make([]byte, HashLengthHex)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func TestIsTransactionValidHappyPath(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	utxo.Set(so, TxOut{Amount: 100, Address: "payer"}, BlockHeader{Height: 0}, false)

	tx := Transaction{
		Version: 1,
		Fees:    5,
		Vin:     map[int]TxIn{0: {Payout: &so, Sig: "sig", PubKey: "payer"}},
		Vout:    map[int]TxOut{0: {Amount: 95, Address: "payee"}},
	}
	err := tx.IsTransactionValid(utxo, Params{CoinbaseMaturity: 1}, 10, fixedVerifier(true), 0)
	if err != nil {
		t.Fatalf("expected a well-formed spend to validate, got %v", err)
	}
}

func TestIsTransactionValidRejectsMissingUtxo(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	tx := Transaction{
		Vin:  map[int]TxIn{0: {Payout: &so, Sig: "s", PubKey: "k"}},
		Vout: map[int]TxOut{0: {Amount: 1}},
	}
	err := tx.IsTransactionValid(utxo, Params{}, 0, fixedVerifier(true), 0)
	if CodeOf(err) != ErrMissingUTXO {
		t.Fatalf("expected ERR_MISSING_UTXO, got %v", err)
	}
}

func TestIsTransactionValidRejectsImmatureCoinbaseSpend(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	utxo.Set(so, TxOut{Amount: 100, Address: "payer"}, BlockHeader{Height: 5}, true)

	tx := Transaction{
		Vin:  map[int]TxIn{0: {Payout: &so, Sig: "s", PubKey: "payer"}},
		Vout: map[int]TxOut{0: {Amount: 90}},
		Fees: 10,
	}
	params := Params{CoinbaseMaturity: 100}
	err := tx.IsTransactionValid(utxo, params, 6, fixedVerifier(true), 0)
	if CodeOf(err) != ErrCoinbaseImmature {
		t.Fatalf("expected ERR_COINBASE_IMMATURE, got %v", err)
	}

	err = tx.IsTransactionValid(utxo, params, 105, fixedVerifier(true), 0)
	if err != nil {
		t.Fatalf("expected spend to succeed once matured, got %v", err)
	}
}

func TestIsTransactionValidRejectsWrongPubKey(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	utxo.Set(so, TxOut{Amount: 100, Address: "payer"}, BlockHeader{}, false)

	tx := Transaction{
		Vin:  map[int]TxIn{0: {Payout: &so, Sig: "s", PubKey: "someone-else"}},
		Vout: map[int]TxOut{0: {Amount: 90}},
		Fees: 10,
	}
	err := tx.IsTransactionValid(utxo, Params{}, 0, fixedVerifier(true), 0)
	if CodeOf(err) != ErrSignatureInvalid {
		t.Fatalf("expected ERR_SIGNATURE_INVALID, got %v", err)
	}
}

func TestIsTransactionValidRejectsBadSignature(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	utxo.Set(so, TxOut{Amount: 100, Address: "payer"}, BlockHeader{}, false)

	tx := Transaction{
		Vin:  map[int]TxIn{0: {Payout: &so, Sig: "bad-sig", PubKey: "payer"}},
		Vout: map[int]TxOut{0: {Amount: 90}},
		Fees: 10,
	}
	err := tx.IsTransactionValid(utxo, Params{}, 0, fixedVerifier(false), 0)
	if CodeOf(err) != ErrSignatureInvalid {
		t.Fatalf("expected ERR_SIGNATURE_INVALID, got %v", err)
	}
}

func TestIsTransactionValidRejectsFeeMismatch(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	utxo.Set(so, TxOut{Amount: 100, Address: "payer"}, BlockHeader{}, false)

	tx := Transaction{
		Vin:  map[int]TxIn{0: {Payout: &so, Sig: "s", PubKey: "payer"}},
		Vout: map[int]TxOut{0: {Amount: 90}},
		Fees: 5,
	}
	err := tx.IsTransactionValid(utxo, Params{}, 0, fixedVerifier(true), 0)
	if CodeOf(err) != ErrFeesMismatch {
		t.Fatalf("expected ERR_FEES_MISMATCH, got %v", err)
	}
}

func TestIsTransactionValidRejectsOutputsExceedingInputs(t *testing.T) {
	utxo := NewUtxo()
	so := SingleOutput{Txid: Hash(zeros()), Vout: 0}
	utxo.Set(so, TxOut{Amount: 100, Address: "payer"}, BlockHeader{}, false)

	tx := Transaction{
		Vin:  map[int]TxIn{0: {Payout: &so, Sig: "s", PubKey: "payer"}},
		Vout: map[int]TxOut{0: {Amount: 150}},
		Fees: 0,
	}
	err := tx.IsTransactionValid(utxo, Params{}, 0, fixedVerifier(true), 0)
	if CodeOf(err) != ErrValueConservation {
		t.Fatalf("expected ERR_VALUE_CONSERVATION, got %v", err)
	}
}
