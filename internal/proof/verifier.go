// Package proof implements the session-proof primitives: the canonical signed
// message, recoverable secp256k1 signature verification, wallet address
// derivation, and minting of the presentation artifacts (token id, tx hash,
// session nonce). Everything random is generated here so the artifact formats
// are defined once.
package proof

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/secp256k1/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Signatures are 65 bytes: r (32) || s (32) || recovery id v.
const sigLen = 65

// ErrMalformedSignature reports a signature that could not be parsed or
// recovered at all, as opposed to one that recovers to the wrong address.
var ErrMalformedSignature = errors.New("malformed signature")

// NormalizeAddress canonicalizes a wallet address for comparison and storage.
// Addresses are compared case-insensitively and stored lower-cased.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// HashMessage applies the personal-message prefix and keccak256, matching what
// wallet clients sign with personal_sign.
func HashMessage(msg string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg)) + msg))
	return h.Sum(nil)
}

// RecoverAddress returns the lower-cased address that produced sigHex over msg.
func RecoverAddress(msg, sigHex string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(sigHex), "0x"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(raw) != sigLen {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSignature, len(raw), sigLen)
	}
	r := new(big.Int).SetBytes(raw[:32])
	s := new(big.Int).SetBytes(raw[32:64])
	// Wallets emit v as 27/28; raw recovery ids are 0..3.
	v := uint(raw[64])
	if v >= 27 {
		v -= 27
	}
	if v > 3 {
		return "", fmt.Errorf("%w: recovery id %d out of range", ErrMalformedSignature, raw[64])
	}
	var pk ecdsa.PublicKey
	if err := pk.RecoverFrom(HashMessage(msg), v, r, s); err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return AddressOf(&pk), nil
}

// Verify reports whether sigHex over msg was produced by claimedAddress.
// A non-nil error means the signature could not be processed at all; a false
// result with nil error means it recovered cleanly to a different address.
func Verify(msg, sigHex, claimedAddress string) (bool, error) {
	recovered, err := RecoverAddress(msg, sigHex)
	if err != nil {
		return false, err
	}
	return recovered == NormalizeAddress(claimedAddress), nil
}

// AddressOf derives the lower-cased 0x address for a public key: the last 20
// bytes of keccak256 over the uncompressed point coordinates.
func AddressOf(pk *ecdsa.PublicKey) string {
	x := pk.A.X.Bytes()
	y := pk.A.Y.Bytes()
	h := sha3.NewLegacyKeccak256()
	h.Write(x[:])
	h.Write(y[:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}
