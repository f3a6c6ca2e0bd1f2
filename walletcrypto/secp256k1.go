package walletcrypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// PrivateKey wraps a secp256k1 private key and implements Signer. The
// address a node uses in vout is simply the hex-encoded compressed public
// key, so addresses are recoverable directly from the key pair.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes reconstructs a PrivateKey from its 32-byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// Bytes returns the 32-byte private scalar for persistence.
func (pk *PrivateKey) Bytes() []byte {
	return pk.key.Serialize()
}

// Sign hashes message with SHA-256 and produces a hex-encoded DER ECDSA
// signature over the digest.
func (pk *PrivateKey) Sign(message []byte) (string, error) {
	digest := sha256.Sum256(message)
	sig := ecdsa.Sign(pk.key, digest[:])
	return hex.EncodeToString(sig.Serialize()), nil
}

// PublicKeyHex returns the hex-encoded compressed public key.
func (pk *PrivateKey) PublicKeyHex() string {
	return hex.EncodeToString(pk.key.PubKey().SerializeCompressed())
}

// ECDSAVerifier is the default Verifier implementation, backed by
// decred's constant-time secp256k1 ECDSA verification.
type ECDSAVerifier struct{}

// Verify checks a hex DER signature over SHA-256(message) against a hex
// compressed public key. Any malformed input is treated as verification
// failure rather than an error, matching the signature-rejection rule in
// transaction validation.
func (ECDSAVerifier) Verify(pubKeyHex string, message []byte, sigHex string) bool {
	pubKeyBytes, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false
	}
	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return sig.Verify(digest[:], pubKey)
}
