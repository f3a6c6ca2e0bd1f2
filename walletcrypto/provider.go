// Package walletcrypto provides the signing primitive consensus depends on
// through consensus.SignatureVerifier, kept as its own package so the
// consensus package never imports a concrete crypto library.
package walletcrypto

// Signer produces a signature over an arbitrary-length message using a
// secp256k1 private key.
type Signer interface {
	// Sign returns a hex-encoded DER signature over message.
	Sign(message []byte) (string, error)
	// PublicKeyHex returns the hex-encoded compressed public key, used
	// directly as a node address (outputs are pay-to-public-key).
	PublicKeyHex() string
}

// Verifier checks a hex-encoded signature against a hex-encoded compressed
// public key. It satisfies consensus.SignatureVerifier.
type Verifier interface {
	Verify(pubKeyHex string, message []byte, sigHex string) bool
}
