package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"accessx/internal/geo"
	"accessx/internal/model"
	"accessx/internal/notify"
	"accessx/internal/proof"
	"accessx/internal/session"
)

// ImageStore offloads captured student photos, returning a stable URL to
// persist instead of the inline bytes.
type ImageStore interface {
	StoreImage(ctx context.Context, dataURL string) (string, error)
}

// Recorder orchestrates the redemption pipeline: session lookup, nonce check,
// time-window and proximity gates, signature verification, and the atomic
// record insert.
type Recorder struct {
	sessions  session.Repo
	records   Repo
	images    ImageStore
	bus       notify.Bus
	window    time.Duration
	maxMeters float64
	loc       *time.Location
	now       func() time.Time
	log       zerolog.Logger
}

// RecorderConfig carries tuning knobs and optional collaborators.
type RecorderConfig struct {
	Window             time.Duration
	ProximityMaxMeters float64
	Location           *time.Location
	Images             ImageStore
	Bus                notify.Bus
	Now                func() time.Time
	Logger             zerolog.Logger
}

// NewRecorder creates a recorder over the two repos.
func NewRecorder(sessions session.Repo, records Repo, cfg RecorderConfig) *Recorder {
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Minute
	}
	if cfg.ProximityMaxMeters <= 0 {
		cfg.ProximityMaxMeters = 100
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Recorder{
		sessions:  sessions,
		records:   records,
		images:    cfg.Images,
		bus:       cfg.Bus,
		window:    cfg.Window,
		maxMeters: cfg.ProximityMaxMeters,
		loc:       cfg.Location,
		now:       cfg.Now,
		log:       cfg.Logger,
	}
}

// RedeemInput is the student's redemption request. Coordinates and image are
// optional.
type RedeemInput struct {
	SessionID        string
	Nonce            string
	Email            string
	WalletAddress    string
	Signature        string
	StudentImage     string
	StudentLatitude  *float64
	StudentLongitude *float64
}

// Redeem validates the claim and persists the attendance record. Each failing
// step short-circuits with its taxonomy error.
func (r *Recorder) Redeem(ctx context.Context, in RedeemInput) (model.AttendanceRecord, error) {
	if in.Email == "" || in.SessionID == "" || in.Nonce == "" || in.Signature == "" || in.WalletAddress == "" {
		return model.AttendanceRecord{}, ErrValidation
	}
	wallet := proof.NormalizeAddress(in.WalletAddress)

	sess, err := r.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return model.AttendanceRecord{}, err
		}
		return model.AttendanceRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if sess.Nonce != in.Nonce {
		return model.AttendanceRecord{}, ErrInvalidNonce
	}

	if sess.HasWindow() {
		start, err := time.ParseInLocation(
			session.DateLayout+" "+session.TimeLayout, sess.Date+" "+sess.StartTime, r.loc)
		if err != nil {
			return model.AttendanceRecord{}, fmt.Errorf("parse session window: %w", err)
		}
		elapsed := r.now().Sub(start)
		if elapsed < 0 {
			return model.AttendanceRecord{}, ErrSessionNotStarted
		}
		if elapsed > r.window {
			return model.AttendanceRecord{}, ErrWindowExpired
		}
	}

	if sess.HasLocation() && in.StudentLatitude != nil && in.StudentLongitude != nil {
		ok, dist := geo.WithinProximity(
			*in.StudentLatitude, *in.StudentLongitude,
			*sess.InstructorLatitude, *sess.InstructorLongitude, r.maxMeters)
		if !ok {
			r.log.Warn().Str("session", sess.SessionID).Str("wallet", wallet).
				Float64("distance_m", dist).Msg("redemption outside proximity")
			return model.AttendanceRecord{}, fmt.Errorf("%w (%.0fm away)", ErrOutOfRange, dist)
		}
	}

	existing, err := r.records.FindBySessionAndWallet(ctx, in.SessionID, wallet)
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if existing != nil {
		return model.AttendanceRecord{}, ErrDuplicate
	}

	msg := proof.CanonicalMessage(in.Email, in.SessionID, in.Nonce)
	ok, err := proof.Verify(msg, in.Signature, wallet)
	if err != nil {
		r.log.Warn().Err(err).Str("session", sess.SessionID).Str("wallet", wallet).
			Msg("signature recovery failed")
		return model.AttendanceRecord{}, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	if !ok {
		r.log.Warn().Str("session", sess.SessionID).Str("wallet", wallet).
			Msg("signature recovered to a different wallet")
		return model.AttendanceRecord{}, ErrSignatureMismatch
	}

	tokenID, err := proof.NewTokenID()
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("mint token id: %w", err)
	}
	txHash, err := proof.NewTxHash()
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("mint tx hash: %w", err)
	}

	image := in.StudentImage
	if image != "" && r.images != nil {
		if url, err := r.images.StoreImage(ctx, image); err != nil {
			// Offload is best effort; keep the inline copy for fraud review.
			r.log.Warn().Err(err).Msg("image offload failed, storing inline")
		} else {
			image = url
		}
	}

	rec := model.AttendanceRecord{
		SessionID:     in.SessionID,
		WalletAddress: wallet,
		Email:         in.Email,
		TokenID:       tokenID,
		TxHash:        txHash,
		Signature:     in.Signature,
		StudentImage:  image,
		Timestamp:     r.now().UTC(),
	}
	created, err := r.records.Insert(ctx, rec)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return model.AttendanceRecord{}, ErrDuplicate
		}
		return model.AttendanceRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if r.bus != nil {
		body, _ := json.Marshal(created)
		if err := r.bus.Publish(ctx, notify.Event{Topic: notify.TopicAttendanceRecorded, Body: body}); err != nil {
			r.log.Warn().Err(err).Msg("attendance event publish failed")
		}
	}
	r.log.Info().Str("session", sess.SessionID).Str("wallet", wallet).
		Str("email", in.Email).Msg("attendance marked")
	return created, nil
}

// Query is the read side used by the validator UI and instructor dashboard.
// Pure reads; absent matches return nil or empty, never an error.
type Query struct {
	records Repo
}

// NewQuery creates the read-side component.
func NewQuery(records Repo) *Query {
	return &Query{records: records}
}

// FindBySessionAndWallet looks up attendance for a (session, wallet) pair.
func (q *Query) FindBySessionAndWallet(ctx context.Context, sessionID, walletAddress string) (*model.AttendanceRecord, error) {
	return q.records.FindBySessionAndWallet(ctx, sessionID, proof.NormalizeAddress(walletAddress))
}

// FindByWalletAndEmail returns a wallet's history for an email, most recent first.
func (q *Query) FindByWalletAndEmail(ctx context.Context, walletAddress, email string) ([]model.AttendanceRecord, error) {
	return q.records.FindByWalletAndEmail(ctx, proof.NormalizeAddress(walletAddress), email)
}

// ListBySession returns all records for a session.
func (q *Query) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	return q.records.ListBySession(ctx, sessionID)
}
