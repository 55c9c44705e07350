package session

import (
	"context"
	"sync"

	"accessx/internal/model"
)

// MemoryRepo is an in-process session store for dev and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	sessions []model.Session
	byID     map[string]int
}

// NewMemoryRepo creates an empty in-memory repo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]int)}
}

// Create stores the session.
func (r *MemoryRepo) Create(_ context.Context, s model.Session) (model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.SessionID] = len(r.sessions)
	r.sessions = append(r.sessions, s)
	return s, nil
}

// GetByID returns the session or ErrNotFound.
func (r *MemoryRepo) GetByID(_ context.Context, sessionID string) (model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[sessionID]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return r.sessions[idx], nil
}

// List returns sessions newest first, optionally scoped to an instructor wallet.
func (r *MemoryRepo) List(_ context.Context, instructorWallet string) ([]model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []model.Session
	for i := len(r.sessions) - 1; i >= 0; i-- {
		s := r.sessions[i]
		if _, live := r.byID[s.SessionID]; !live {
			continue
		}
		if instructorWallet != "" && s.InstructorWallet != instructorWallet {
			continue
		}
		res = append(res, s)
	}
	return res, nil
}

// Delete removes the session.
func (r *MemoryRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[sessionID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, sessionID)
	return nil
}
