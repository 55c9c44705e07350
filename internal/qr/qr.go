// Package qr defines the credential payload embedded in the session QR
// artifact. The payload is compact JSON; rendering it as an actual QR image is
// the client's concern.
package qr

import (
	"encoding/json"
	"errors"
)

// Payload is the sole credential a student needs to attempt attendance.
type Payload struct {
	SessionID string `json:"sessionId"`
	Nonce     string `json:"nonce"`
}

var ErrInvalidPayload = errors.New("invalid qr payload")

// Encode serializes the credential pair for QR embedding.
func Encode(sessionID, nonce string) (string, error) {
	b, err := json.Marshal(Payload{SessionID: sessionID, Nonce: nonce})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a scanned payload, rejecting anything missing either field.
func Decode(data string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Payload{}, ErrInvalidPayload
	}
	if p.SessionID == "" || p.Nonce == "" {
		return Payload{}, ErrInvalidPayload
	}
	return p, nil
}
