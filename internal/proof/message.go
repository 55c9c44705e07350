package proof

import "fmt"

// CanonicalMessage builds the exact text a student signs for a redemption.
// Signer and verifier must agree on this byte-for-byte.
func CanonicalMessage(email, sessionID, nonce string) string {
	return fmt.Sprintf("Attendance Request\nEmail: %s\nSession: %s\nNonce: %s", email, sessionID, nonce)
}

// LoginMessage builds the text an instructor signs to authenticate with a
// one-time challenge.
func LoginMessage(wallet, challenge string) string {
	return fmt.Sprintf("AccessX Login\nWallet: %s\nChallenge: %s", wallet, challenge)
}
