package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"accessx/internal/model"
)

// MemoryRepo is an in-process attendance store for dev and tests. The
// check-and-insert happens under one lock, giving the same atomicity as the
// Postgres unique index.
type MemoryRepo struct {
	mu      sync.RWMutex
	records []model.AttendanceRecord
	byPair  map[string]struct{}
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byPair: make(map[string]struct{})}
}

func pairKey(sessionID, walletAddress string) string {
	return sessionID + "|" + walletAddress
}

// Insert writes a new record or fails with ErrDuplicate.
func (r *MemoryRepo) Insert(_ context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(rec.SessionID, rec.WalletAddress)
	if _, exists := r.byPair[key]; exists {
		return model.AttendanceRecord{}, ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	r.byPair[key] = struct{}{}
	r.records = append(r.records, rec)
	return rec, nil
}

// FindBySessionAndWallet returns the record for the pair, or nil when absent.
func (r *MemoryRepo) FindBySessionAndWallet(_ context.Context, sessionID, walletAddress string) (*model.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.records {
		if r.records[i].SessionID == sessionID && r.records[i].WalletAddress == walletAddress {
			rec := r.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// FindByWalletAndEmail returns the wallet's records for an email, most recent first.
func (r *MemoryRepo) FindByWalletAndEmail(_ context.Context, walletAddress, email string) ([]model.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.AttendanceRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].WalletAddress == walletAddress && r.records[i].Email == email {
			res = append(res, r.records[i])
		}
	}
	return res, nil
}

// ListBySession returns a session's records in arrival order.
func (r *MemoryRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.AttendanceRecord
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			res = append(res, rec)
		}
	}
	return res, nil
}

// Delete removes one record by id.
func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rec.ID == id {
			delete(r.byPair, pairKey(rec.SessionID, rec.WalletAddress))
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

// DeleteBySession removes all records for a session.
func (r *MemoryRepo) DeleteBySession(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			delete(r.byPair, pairKey(rec.SessionID, rec.WalletAddress))
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return nil
}
