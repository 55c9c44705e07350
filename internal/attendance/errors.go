package attendance

import "errors"

// Redemption failure taxonomy. Every error is terminal for the request; the
// HTTP layer maps them to distinct statuses and short human-readable messages.
var (
	ErrValidation        = errors.New("missing required fields")
	ErrInvalidNonce      = errors.New("invalid nonce or QR code")
	ErrSessionNotStarted = errors.New("session has not started yet")
	ErrWindowExpired     = errors.New("attendance window has expired")
	ErrOutOfRange        = errors.New("outside allowed proximity of the session")
	ErrDuplicate         = errors.New("attendance already marked for this wallet")
	ErrSignatureMismatch = errors.New("signature verification failed: wallet mismatch")
	ErrCrypto            = errors.New("crypto verification failed")
	ErrUnavailable       = errors.New("record store unavailable")

	// ErrRecordNotFound reports a missing attendance record on delete.
	ErrRecordNotFound = errors.New("attendance record not found")
)
