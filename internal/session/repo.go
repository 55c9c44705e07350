package session

import (
	"context"
	"errors"

	"accessx/internal/model"
)

var (
	// ErrNotFound reports an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrValidation reports missing or malformed issuer input.
	ErrValidation = errors.New("title and date are required")
)

// Repo is the record-store capability for sessions. Sessions are immutable
// after creation; the only mutation is deletion.
type Repo interface {
	Create(ctx context.Context, s model.Session) (model.Session, error)
	GetByID(ctx context.Context, sessionID string) (model.Session, error)
	List(ctx context.Context, instructorWallet string) ([]model.Session, error)
	Delete(ctx context.Context, sessionID string) error
}
