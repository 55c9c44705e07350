package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accessx/internal/attendance"
	"accessx/internal/auth"
	"accessx/internal/config"
	"accessx/internal/notify"
	"accessx/internal/proof"
	"accessx/internal/qr"
	"accessx/internal/session"
)

type testEnv struct {
	router *gin.Engine
	clock  time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.App{
		Env:                "test",
		JWTIssuer:          "accessx",
		JWTSigningKey:      "test-signing-key",
		AccessTTL:          time.Hour,
		RateLimitPerMin:    10000,
		AttendanceWindow:   10 * time.Minute,
		ProximityMaxMeters: 100,
	}

	clock := time.Date(2025, 1, 10, 9, 3, 0, 0, time.UTC)
	sessions := session.NewMemoryRepo()
	records := attendance.NewMemoryRepo()
	bus := notify.NewInMemory()
	recorder := attendance.NewRecorder(sessions, records, attendance.RecorderConfig{
		Window:             cfg.AttendanceWindow,
		ProximityMaxMeters: cfg.ProximityMaxMeters,
		Bus:                bus,
		Now:                func() time.Time { return clock },
		Logger:             zerolog.Nop(),
	})

	h := New(Deps{
		Cfg:        cfg,
		Log:        zerolog.Nop(),
		Issuer:     session.NewIssuer(sessions, session.IssuerConfig{Bus: bus, Logger: zerolog.Nop()}),
		Sessions:   sessions,
		Recorder:   recorder,
		Query:      attendance.NewQuery(records),
		Records:    records,
		Challenges: auth.NewMemoryChallenges(time.Minute),
		Bus:        bus,
	})
	return &testEnv{router: h.Router(), clock: clock}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var parsed map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &parsed)
	}
	return w, parsed
}

func (e *testEnv) createSession(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	w, resp := e.do(t, http.MethodPost, "/admin/session", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	payload, err := qr.Decode(resp["qrPayload"].(string))
	require.NoError(t, err)
	return payload.SessionID, payload.Nonce
}

func (e *testEnv) login(t *testing.T, w *proof.Wallet) string {
	t.Helper()
	rec, resp := e.do(t, http.MethodGet, "/admin/login/challenge?wallet="+w.Address(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	message := resp["message"].(string)

	sig, err := w.Sign(message)
	require.NoError(t, err)
	rec, resp = e.do(t, http.MethodPost, "/admin/login", map[string]any{
		"walletAddress": w.Address(),
		"signature":     sig,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return resp["accessToken"].(string)
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestRedeemEndToEnd(t *testing.T) {
	e := newTestEnv(t)
	sessionID, nonce := e.createSession(t, map[string]any{
		"title": "CS101", "date": "2025-01-10", "startTime": "09:00",
	})

	student, err := proof.NewWallet()
	require.NoError(t, err)
	sig, err := student.Sign(proof.CanonicalMessage("alice@example.edu", sessionID, nonce))
	require.NoError(t, err)
	body := map[string]any{
		"email":         "alice@example.edu",
		"sessionId":     sessionID,
		"nonce":         nonce,
		"walletAddress": student.Address(),
		"signature":     sig,
	}

	w, resp := e.do(t, http.MethodPost, "/student/redeem", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, resp["success"])
	tokenID := resp["tokenId"].(string)
	assert.Regexp(t, `^[0-9]{6}$`, tokenID)
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, resp["txHash"])

	// Replays of the same proof are rejected.
	w, _ = e.do(t, http.MethodPost, "/student/redeem", body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The validator accepts any wallet casing.
	upper := "0X" + strings.ToUpper(student.Address()[2:])
	w, resp = e.do(t, http.MethodGet, "/validator/"+sessionID+"/"+upper, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["verified"])
	assert.Equal(t, tokenID, resp["tokenId"])
	metadata := resp["metadata"].(map[string]any)
	assert.Equal(t, "CS101 Badge", metadata["name"])
}

func TestRedeemFailureStatuses(t *testing.T) {
	e := newTestEnv(t)
	sessionID, nonce := e.createSession(t, map[string]any{"title": "CS101", "date": "2025-01-10"})

	student, err := proof.NewWallet()
	require.NoError(t, err)
	sig, err := student.Sign(proof.CanonicalMessage("alice@example.edu", sessionID, nonce))
	require.NoError(t, err)

	cases := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{
			name:   "missing fields",
			body:   map[string]any{"sessionId": sessionID},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown session",
			body: map[string]any{
				"email": "alice@example.edu", "sessionId": "no-such-session",
				"nonce": nonce, "walletAddress": student.Address(), "signature": sig,
			},
			status: http.StatusNotFound,
		},
		{
			name: "wrong nonce",
			body: map[string]any{
				"email": "alice@example.edu", "sessionId": sessionID,
				"nonce": "ffffffffffffffffffffffff", "walletAddress": student.Address(), "signature": sig,
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "signature for another email",
			body: map[string]any{
				"email": "mallory@example.edu", "sessionId": sessionID,
				"nonce": nonce, "walletAddress": student.Address(), "signature": sig,
			},
			status: http.StatusUnauthorized,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := e.do(t, http.MethodPost, "/student/redeem", tc.body, nil)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestValidatorNotFound(t *testing.T) {
	e := newTestEnv(t)
	w, resp := e.do(t, http.MethodGet, "/validator/ghost/0xabc", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["verified"])
}

func TestCreateSessionValidation(t *testing.T) {
	e := newTestEnv(t)
	w, _ := e.do(t, http.MethodPost, "/admin/session", map[string]any{"title": "No Date"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListSessions(t *testing.T) {
	e := newTestEnv(t)
	e.createSession(t, map[string]any{"title": "CS101", "date": "2025-01-10", "instructorWallet": "0xaaa"})
	e.createSession(t, map[string]any{"title": "CS102", "date": "2025-01-10", "instructorWallet": "0xbbb"})

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/sessions?instructor=0xAAA", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var sessions []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "CS101", sessions[0]["title"])
}

func TestStudentRecords(t *testing.T) {
	e := newTestEnv(t)
	sessionID, nonce := e.createSession(t, map[string]any{"title": "CS101", "date": "2025-01-10"})

	student, err := proof.NewWallet()
	require.NoError(t, err)
	sig, err := student.Sign(proof.CanonicalMessage("alice@example.edu", sessionID, nonce))
	require.NoError(t, err)
	w, _ := e.do(t, http.MethodPost, "/student/redeem", map[string]any{
		"email": "alice@example.edu", "sessionId": sessionID, "nonce": nonce,
		"walletAddress": student.Address(), "signature": sig,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := e.do(t, http.MethodGet, "/student/records?wallet="+student.Address()+"&email=alice@example.edu", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := resp["records"].([]any)
	require.Len(t, records, 1)

	w, _ = e.do(t, http.MethodGet, "/student/records?wallet="+student.Address(), nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInstructorLoginAndDeleteSession(t *testing.T) {
	e := newTestEnv(t)
	instructor, err := proof.NewWallet()
	require.NoError(t, err)

	sessionID, _ := e.createSession(t, map[string]any{
		"title": "CS101", "date": "2025-01-10", "instructorWallet": instructor.Address(),
	})

	// Protected routes reject missing and garbage tokens.
	w, _ := e.do(t, http.MethodDelete, "/admin/session/"+sessionID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w, _ = e.do(t, http.MethodDelete, "/admin/session/"+sessionID, nil, bearer("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := e.login(t, instructor)

	// A different authenticated instructor is not the owner.
	other, err := proof.NewWallet()
	require.NoError(t, err)
	otherToken := e.login(t, other)
	w, _ = e.do(t, http.MethodDelete, "/admin/session/"+sessionID, nil, bearer(otherToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := e.do(t, http.MethodDelete, "/admin/session/"+sessionID, nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, resp["deleted"])

	w, _ = e.do(t, http.MethodDelete, "/admin/session/"+sessionID, nil, bearer(token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginChallengeSingleUse(t *testing.T) {
	e := newTestEnv(t)
	instructor, err := proof.NewWallet()
	require.NoError(t, err)

	rec, resp := e.do(t, http.MethodGet, "/admin/login/challenge?wallet="+instructor.Address(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sig, err := instructor.Sign(resp["message"].(string))
	require.NoError(t, err)
	body := map[string]any{"walletAddress": instructor.Address(), "signature": sig}

	rec, _ = e.do(t, http.MethodPost, "/admin/login", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, http.MethodPost, "/admin/login", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "challenge must not be replayable")
}

func TestLoginRejectsForeignSignature(t *testing.T) {
	e := newTestEnv(t)
	instructor, err := proof.NewWallet()
	require.NoError(t, err)
	impostor, err := proof.NewWallet()
	require.NoError(t, err)

	rec, resp := e.do(t, http.MethodGet, "/admin/login/challenge?wallet="+instructor.Address(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sig, err := impostor.Sign(resp["message"].(string))
	require.NoError(t, err)

	rec, _ = e.do(t, http.MethodPost, "/admin/login", map[string]any{
		"walletAddress": instructor.Address(), "signature": sig,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionRecordsAndExport(t *testing.T) {
	e := newTestEnv(t)
	instructor, err := proof.NewWallet()
	require.NoError(t, err)
	sessionID, nonce := e.createSession(t, map[string]any{
		"title": "CS101", "date": "2025-01-10", "instructorWallet": instructor.Address(),
	})

	student, err := proof.NewWallet()
	require.NoError(t, err)
	sig, err := student.Sign(proof.CanonicalMessage("alice@example.edu", sessionID, nonce))
	require.NoError(t, err)
	w, _ := e.do(t, http.MethodPost, "/student/redeem", map[string]any{
		"email": "alice@example.edu", "sessionId": sessionID, "nonce": nonce,
		"walletAddress": student.Address(), "signature": sig,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	token := e.login(t, instructor)

	w, resp := e.do(t, http.MethodGet, "/admin/session/"+sessionID+"/records", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["records"].([]any), 1)

	w, _ = e.do(t, http.MethodGet, "/admin/session/"+sessionID+"/export", nil, bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestSessionCountWithoutRedis(t *testing.T) {
	e := newTestEnv(t)
	w, resp := e.do(t, http.MethodGet, "/admin/session/any/count", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["live"])
	assert.Equal(t, float64(0), resp["count"])
}
