package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"accessx/internal/model"
	"accessx/internal/notify"
	"accessx/internal/proof"
)

// Layouts for the issuer-supplied date and time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Issuer creates sessions with fresh credentials and announces them on the bus.
type Issuer struct {
	repo Repo
	bus  notify.Bus
	log  zerolog.Logger
	now  func() time.Time
}

// IssuerConfig carries the optional collaborators.
type IssuerConfig struct {
	Bus    notify.Bus
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewIssuer creates an issuer backed by a session repo.
func NewIssuer(repo Repo, cfg IssuerConfig) *Issuer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Issuer{repo: repo, bus: cfg.Bus, log: cfg.Logger, now: cfg.Now}
}

// CreateInput is the issuer request.
type CreateInput struct {
	Title               string
	Date                string
	StartTime           string
	EndTime             string
	InstructorWallet    string
	InstructorLatitude  *float64
	InstructorLongitude *float64
}

// CreateSession generates a session id and single-use nonce, persists the
// session, and returns it. Title and date are mandatory; when a start time is
// given, date and start time must parse so the validity window is computable.
func (i *Issuer) CreateSession(ctx context.Context, in CreateInput) (model.Session, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Date) == "" {
		return model.Session{}, ErrValidation
	}
	if in.StartTime != "" {
		if _, err := time.Parse(DateLayout, in.Date); err != nil {
			return model.Session{}, fmt.Errorf("%w: date must be %s when a start time is set", ErrValidation, DateLayout)
		}
		if _, err := time.Parse(TimeLayout, in.StartTime); err != nil {
			return model.Session{}, fmt.Errorf("%w: start time must be %s", ErrValidation, TimeLayout)
		}
	}

	nonce, err := proof.NewNonce()
	if err != nil {
		return model.Session{}, fmt.Errorf("generate nonce: %w", err)
	}
	s := model.Session{
		SessionID:           uuid.NewString(),
		Nonce:               nonce,
		Title:               strings.TrimSpace(in.Title),
		Date:                strings.TrimSpace(in.Date),
		StartTime:           in.StartTime,
		EndTime:             in.EndTime,
		InstructorWallet:    proof.NormalizeAddress(in.InstructorWallet),
		InstructorLatitude:  in.InstructorLatitude,
		InstructorLongitude: in.InstructorLongitude,
		CreatedAt:           i.now().UTC(),
	}

	created, err := i.repo.Create(ctx, s)
	if err != nil {
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}

	if i.bus != nil {
		body, _ := json.Marshal(created)
		if err := i.bus.Publish(ctx, notify.Event{Topic: notify.TopicSessionCreated, Body: body}); err != nil {
			i.log.Warn().Err(err).Msg("session event publish failed")
		}
	}
	i.log.Info().Str("session", created.SessionID).Str("title", created.Title).Msg("session created")
	return created, nil
}
