package attendance

import (
	"context"

	"accessx/internal/model"
)

// Repo is the record-store capability for attendance records.
//
// Insert carries the one-attempt-per-wallet guarantee: it must be atomic with
// respect to the (sessionID, walletAddress) uniqueness rule, so that of two
// concurrent inserts for the same pair exactly one succeeds and the other
// fails with ErrDuplicate.
type Repo interface {
	Insert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error)
	FindBySessionAndWallet(ctx context.Context, sessionID, walletAddress string) (*model.AttendanceRecord, error)
	FindByWalletAndEmail(ctx context.Context, walletAddress, email string) ([]model.AttendanceRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteBySession(ctx context.Context, sessionID string) error
}
