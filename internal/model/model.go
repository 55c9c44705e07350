package model

import "time"

// Session is an instructor-defined attendance window. The sessionId/nonce pair
// is the sole credential distributed to students (embedded in the QR payload).
type Session struct {
	SessionID           string    `json:"sessionId"`
	Nonce               string    `json:"nonce"`
	Title               string    `json:"title"`
	Date                string    `json:"date"`
	StartTime           string    `json:"startTime,omitempty"`
	EndTime             string    `json:"endTime,omitempty"`
	InstructorWallet    string    `json:"instructorWallet,omitempty"`
	InstructorLatitude  *float64  `json:"instructorLatitude,omitempty"`
	InstructorLongitude *float64  `json:"instructorLongitude,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// HasWindow reports whether the session enforces an attendance validity window.
func (s Session) HasWindow() bool { return s.StartTime != "" }

// HasLocation reports whether a creation-time instructor location was captured.
func (s Session) HasLocation() bool {
	return s.InstructorLatitude != nil && s.InstructorLongitude != nil
}

// AttendanceRecord is the persisted proof that a wallet attended a session.
// At most one record exists per (SessionID, WalletAddress); wallet addresses
// are stored lower-cased.
type AttendanceRecord struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	WalletAddress string    `json:"walletAddress"`
	Email         string    `json:"email"`
	TokenID       string    `json:"tokenId"`
	TxHash        string    `json:"txHash"`
	Signature     string    `json:"signature"`
	StudentImage  string    `json:"studentImage,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}
