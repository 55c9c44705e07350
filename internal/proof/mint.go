package proof

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// NewTokenID mints the 6-digit numeric token id shown to the student after a
// successful redemption. Presentation artifact only; uniqueness is not enforced.
func NewTokenID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// NewTxHash mints the simulated ledger transaction id: 32 random bytes, hex.
func NewTxHash() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b[:]), nil
}

// NewNonce mints a session nonce: 12 random bytes hex-encoded, giving 96 bits
// of entropy in 24 characters.
func NewNonce() (string, error) {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
