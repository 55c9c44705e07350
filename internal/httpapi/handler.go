// Package httpapi exposes the protocol core over HTTP: the admin (instructor),
// student, and validator surfaces.
package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"accessx/internal/attendance"
	"accessx/internal/auth"
	"accessx/internal/config"
	"accessx/internal/export"
	"accessx/internal/httpmiddleware"
	"accessx/internal/model"
	"accessx/internal/notify"
	"accessx/internal/proof"
	"accessx/internal/qr"
	"accessx/internal/session"
	"accessx/internal/store"
)

// Handler holds the wired components behind the HTTP surface.
type Handler struct {
	cfg        config.App
	log        zerolog.Logger
	issuer     *session.Issuer
	sessions   session.Repo
	recorder   *attendance.Recorder
	query      *attendance.Query
	records    attendance.Repo
	challenges auth.ChallengeStore
	bus        notify.Bus
	db         *store.DB
	rdb        *store.Redis
}

// Deps bundles the constructor arguments.
type Deps struct {
	Cfg        config.App
	Log        zerolog.Logger
	Issuer     *session.Issuer
	Sessions   session.Repo
	Recorder   *attendance.Recorder
	Query      *attendance.Query
	Records    attendance.Repo
	Challenges auth.ChallengeStore
	Bus        notify.Bus
	DB         *store.DB
	Redis      *store.Redis
}

// New creates the handler.
func New(d Deps) *Handler {
	return &Handler{
		cfg:        d.Cfg,
		log:        d.Log,
		issuer:     d.Issuer,
		sessions:   d.Sessions,
		recorder:   d.Recorder,
		query:      d.Query,
		records:    d.Records,
		challenges: d.Challenges,
		bus:        d.Bus,
		db:         d.DB,
		rdb:        d.Redis,
	}
}

// Router builds the gin engine with the full route table and middleware stack.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(h.cfg.RateLimitPerMin, h.cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	admin := r.Group("/admin")
	{
		admin.POST("/session", h.createSession)
		admin.GET("/sessions", h.listSessions)
		admin.GET("/sessions/stream", h.streamSessions)
		admin.GET("/session/:sessionId/count", h.sessionCount)
		admin.GET("/login/challenge", h.loginChallenge)
		admin.POST("/login", h.login)

		protected := admin.Group("", auth.InstructorAuth(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
		protected.GET("/session/:sessionId/records", h.sessionRecords)
		protected.GET("/session/:sessionId/export", h.exportSession)
		protected.DELETE("/session/:sessionId", h.deleteSession)
		protected.DELETE("/attendance/:id", h.deleteRecord)
	}

	r.POST("/student/redeem", h.redeem)
	r.GET("/student/records", h.studentRecords)
	r.GET("/validator/:sessionId/:walletAddress", h.validate)

	return r
}

func (h *Handler) createSession(c *gin.Context) {
	var req struct {
		Title               string   `json:"title"`
		Date                string   `json:"date"`
		StartTime           string   `json:"startTime"`
		EndTime             string   `json:"endTime"`
		InstructorWallet    string   `json:"instructorWallet"`
		InstructorLatitude  *float64 `json:"instructorLatitude"`
		InstructorLongitude *float64 `json:"instructorLongitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := h.issuer.CreateSession(c.Request.Context(), session.CreateInput{
		Title:               req.Title,
		Date:                req.Date,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		InstructorWallet:    req.InstructorWallet,
		InstructorLatitude:  req.InstructorLatitude,
		InstructorLongitude: req.InstructorLongitude,
	})
	if err != nil {
		if errors.Is(err, session.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Title and Date are required"})
			return
		}
		h.log.Error().Err(err).Msg("session create failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	sessionsCreatedTotal.Inc()

	payload, _ := qr.Encode(sess.SessionID, sess.Nonce)
	c.JSON(http.StatusOK, gin.H{
		"session":   sess,
		"qrPayload": payload,
	})
}

func (h *Handler) listSessions(c *gin.Context) {
	instructor := proof.NormalizeAddress(c.Query("instructor"))
	sessions, err := h.sessions.List(c.Request.Context(), instructor)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) streamSessions(c *gin.Context) {
	events, err := h.bus.Subscribe(c.Request.Context(), notify.TopicSessionCreated)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stream unavailable"})
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("session", string(evt.Body))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) sessionCount(c *gin.Context) {
	// Live counter maintained by the worker; zero when redis is absent.
	if h.rdb == nil || h.rdb.Client == nil {
		c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("sessionId"), "count": 0, "live": false})
		return
	}
	val, err := h.rdb.Client.Get(c.Request.Context(), notify.CountKey(c.Param("sessionId"))).Result()
	count := 0
	if err == nil {
		count, _ = strconv.Atoi(val)
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": c.Param("sessionId"), "count": count, "live": err == nil})
}

func (h *Handler) loginChallenge(c *gin.Context) {
	wallet := proof.NormalizeAddress(c.Query("wallet"))
	if wallet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet query parameter required"})
		return
	}
	challenge, err := h.challenges.Issue(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "challenge store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"wallet":    wallet,
		"challenge": challenge,
		"message":   proof.LoginMessage(wallet, challenge),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress"`
		Signature     string `json:"signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.WalletAddress == "" || req.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "walletAddress and signature required"})
		return
	}
	wallet := proof.NormalizeAddress(req.WalletAddress)

	challenge, err := h.challenges.Redeem(c.Request.Context(), wallet)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no pending login challenge"})
		return
	}
	ok, err := proof.Verify(proof.LoginMessage(wallet, challenge), req.Signature, wallet)
	if err != nil || !ok {
		h.log.Warn().Str("wallet", wallet).Msg("instructor login signature rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return
	}

	token, expiresAt, err := auth.Issue(wallet, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": token, "expiresAt": expiresAt.Unix()})
}

func (h *Handler) redeem(c *gin.Context) {
	var req struct {
		Email         string   `json:"email"`
		SessionID     string   `json:"sessionId"`
		Nonce         string   `json:"nonce"`
		Signature     string   `json:"signature"`
		WalletAddress string   `json:"walletAddress"`
		StudentImage  string   `json:"studentImage"`
		Latitude      *float64 `json:"latitude"`
		Longitude     *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		redemptionsTotal.WithLabelValues("validation").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	rec, err := h.recorder.Redeem(c.Request.Context(), attendance.RedeemInput{
		SessionID:        req.SessionID,
		Nonce:            req.Nonce,
		Email:            req.Email,
		WalletAddress:    req.WalletAddress,
		Signature:        req.Signature,
		StudentImage:     req.StudentImage,
		StudentLatitude:  req.Latitude,
		StudentLongitude: req.Longitude,
	})
	if err != nil {
		status, outcome := redeemFailure(err)
		redemptionsTotal.WithLabelValues(outcome).Inc()
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	redemptionsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"tokenId": rec.TokenID,
		"txHash":  rec.TxHash,
	})
}

func (h *Handler) studentRecords(c *gin.Context) {
	wallet := c.Query("wallet")
	email := c.Query("email")
	if wallet == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "wallet and email query parameters required"})
		return
	}
	records, err := h.query.FindByWalletAndEmail(c.Request.Context(), wallet, email)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) validate(c *gin.Context) {
	sessionID := c.Param("sessionId")
	wallet := c.Param("walletAddress")

	rec, err := h.query.FindBySessionAndWallet(c.Request.Context(), sessionID, wallet)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"verified": false, "error": "record store unavailable"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"verified": false,
			"error":    "No attendance record found for this wallet/session combination.",
		})
		return
	}

	name := "Class Badge"
	date := rec.Timestamp.Format("2006-01-02")
	if sess, err := h.sessions.GetByID(c.Request.Context(), sessionID); err == nil {
		name = sess.Title + " Badge"
		date = sess.Date
	}
	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"tokenId":  rec.TokenID,
		"metadata": gin.H{
			"name":        name,
			"description": "Official AU AccessX Attendance Proof",
			"image":       "https://cdn-icons-png.flaticon.com/512/6298/6298900.png",
			"attributes": []gin.H{
				{"trait_type": "Student Email", "value": rec.Email},
				{"trait_type": "Date", "value": date},
				{"trait_type": "Timestamp", "value": rec.Timestamp},
			},
		},
	})
}

func (h *Handler) sessionRecords(c *gin.Context) {
	records, err := h.query.ListBySession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	if records == nil {
		records = []model.AttendanceRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func (h *Handler) exportSession(c *gin.Context) {
	ctx := c.Request.Context()
	sess, err := h.sessions.GetByID(ctx, c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	records, err := h.query.ListBySession(ctx, sess.SessionID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	f, err := export.SessionSheet(sess, records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="attendance-`+sess.SessionID+`.xlsx"`)
	if _, err := f.WriteTo(c.Writer); err != nil {
		h.log.Warn().Err(err).Msg("export write failed")
	}
}

func (h *Handler) deleteSession(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	sess, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "record store unavailable"})
		return
	}
	if sess.InstructorWallet != "" && sess.InstructorWallet != c.GetString(auth.WalletKey) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the session owner"})
		return
	}

	if err := h.sessions.Delete(ctx, sessionID); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delete failed"})
		return
	}
	// Postgres cascades via the FK; the memory store needs the explicit sweep.
	if err := h.records.DeleteBySession(ctx, sessionID); err != nil {
		h.log.Warn().Err(err).Str("session", sessionID).Msg("record sweep failed")
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) deleteRecord(c *gin.Context) {
	if err := h.records.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attendance record not found"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) healthz(c *gin.Context) {
	redisHealthy := h.rdb.Healthy(c.Request.Context())
	dbHealthy := h.db != nil && h.db.Client != nil && h.db.Client.PingContext(c.Request.Context()) == nil
	status := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
}

// redeemFailure maps a recorder error to its HTTP status and metric outcome.
func redeemFailure(err error) (int, string) {
	switch {
	case errors.Is(err, attendance.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, attendance.ErrInvalidNonce):
		return http.StatusUnauthorized, "invalid_nonce"
	case errors.Is(err, attendance.ErrSignatureMismatch):
		return http.StatusUnauthorized, "signature_mismatch"
	case errors.Is(err, attendance.ErrSessionNotStarted):
		return http.StatusForbidden, "not_started"
	case errors.Is(err, attendance.ErrWindowExpired):
		return http.StatusForbidden, "window_expired"
	case errors.Is(err, attendance.ErrOutOfRange):
		return http.StatusForbidden, "out_of_range"
	case errors.Is(err, attendance.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, attendance.ErrCrypto):
		return http.StatusInternalServerError, "crypto_failure"
	case errors.Is(err, attendance.ErrUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
