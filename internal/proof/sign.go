package proof

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/secp256k1/ecdsa"
)

// Wallet is a signing identity, used by tests and tooling to produce the same
// signatures a browser wallet would.
type Wallet struct {
	key *ecdsa.PrivateKey
}

// NewWallet generates a fresh secp256k1 keypair.
func NewWallet() (*Wallet, error) {
	key, err := ecdsa.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key}, nil
}

// Address returns the wallet's lower-cased 0x address.
func (w *Wallet) Address() string {
	return AddressOf(&w.key.PublicKey)
}

// Sign produces a hex-encoded 65-byte r||s||v personal-message signature over msg.
func (w *Wallet) Sign(msg string) (string, error) {
	v, r, s, err := w.key.SignForRecover(HashMessage(msg), nil)
	if err != nil {
		return "", err
	}
	sig := make([]byte, sigLen)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(v) + 27
	return "0x" + hex.EncodeToString(sig), nil
}
