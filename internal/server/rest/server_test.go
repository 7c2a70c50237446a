package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/repomanager"
	"github.com/xchange-erasmus/xchange-api/internal/server/services"
)

const testSecret = "test-secret"

type fakePasswordAuth struct {
	res *services.LoginResult
	err error
}

func (f *fakePasswordAuth) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	return f.res, f.err
}

type fakeCodeAuth struct {
	res     *services.LoginResult
	err     error
	gotCode string
}

func (f *fakeCodeAuth) Login(ctx context.Context, code string) (*services.LoginResult, error) {
	f.gotCode = code
	return f.res, f.err
}

type fakeRedirector struct {
	configured bool
}

func (f *fakeRedirector) Configured() bool { return f.configured }

func (f *fakeRedirector) AuthCodeURL(state string) string {
	return "https://github.example/login/oauth/authorize?client_id=cid&state=" + url.QueryEscape(state)
}

type fakePinger struct{ err error }

func (f *fakePinger) PingContext(ctx context.Context) error { return f.err }

type testEnv struct {
	handler  http.Handler
	tokens   *auth.TokenService
	users    *fakePasswordAuth
	oauth    *fakeCodeAuth
	provider *fakeRedirector
	pinger   *fakePinger
}

func testOptions() Options {
	return Options{
		StateKey:   []byte(testSecret),
		TokenTTL:   15 * time.Minute,
		SuccessURL: "/dashboard",
		ErrorURL:   "/login",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, 15*time.Minute)
	require.NoError(t, err)

	env := &testEnv{
		tokens:   tokens,
		users:    &fakePasswordAuth{},
		oauth:    &fakeCodeAuth{},
		provider: &fakeRedirector{configured: true},
		pinger:   &fakePinger{},
	}
	srv := NewServer(testOptions(), Dependencies{
		Users:    env.users,
		OAuth:    env.oauth,
		Provider: env.provider,
		Tokens:   tokens,
		DB:       env.pinger,
	}, logging.NewNopLogger())
	env.handler = srv.Handler()
	return env
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLogin_EndToEnd(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	hash, err := auth.HashPassword("secret", bcrypt.MinCost)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id_usuario", "email", "password", "id_rol", "tipo"})
	mock.ExpectQuery(`FROM\s+usuarios\s+u\s+JOIN\s+roles`).
		WithArgs("a@x.com").
		WillReturnRows(rows.AddRow(int64(1), "a@x.com", hash, int64(2), "Alumno"))

	tokens, err := auth.NewTokenService(testSecret, 15*time.Minute)
	require.NoError(t, err)
	users := services.NewUserService(db, repomanager.NewPostgresRepositoryManager(), tokens, bcrypt.MinCost, logging.NewNopLogger())

	srv := NewServer(testOptions(), Dependencies{
		Users:    users,
		OAuth:    &fakeCodeAuth{},
		Provider: &fakeRedirector{},
		Tokens:   tokens,
		DB:       db,
	}, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(srv.Handler(), req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body struct {
		Success bool               `json:"success"`
		Token   string             `json:"token"`
		User    models.UserSummary `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, models.UserSummary{ID: 1, Email: "a@x.com", Role: 2, RoleName: "Alumno"}, body.User)

	raw := decodeBody(t, rec)
	assert.Len(t, raw, 3)
	assert.JSONEq(t, `{"id":1,"email":"a@x.com","role":2,"role_name":"Alumno"}`, mustJSON(t, raw["user"]))

	claims, err := tokens.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, int64(2), claims.Role)
	assert.Equal(t, "Alumno", claims.RoleName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestLogin_FailuresShareShape(t *testing.T) {
	env := newTestEnv(t)

	post := func(body string) *httptest.ResponseRecorder {
		return do(env.handler, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))
	}

	env.users.err = common.ErrInvalidCredentials
	unknown := post(`{"email":"ghost@x.com","password":"secret"}`)
	wrong := post(`{"email":"a@x.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	assert.JSONEq(t, `{"success":false,"error":"invalid credentials"}`, unknown.Body.String())

	env.users.err = common.ErrBadRequest
	missing := post(`{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, false, decodeBody(t, missing)["success"])

	malformed := post(`{not json`)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)

	env.users.err = common.ErrorInternal
	internal := post(`{"email":"a@x.com","password":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, internal.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, internal.Body.String())
}

func TestRequireToken(t *testing.T) {
	env := newTestEnv(t)

	valid, err := env.tokens.Issue(auth.NewClaims(1, "a@x.com", 2, "Alumno"))
	require.NoError(t, err)

	otherSigner, err := auth.NewTokenService("another-secret", time.Minute)
	require.NoError(t, err)
	forged, err := otherSigner.Issue(auth.NewClaims(1, "a@x.com", 1, "Administrador"))
	require.NoError(t, err)

	expiredSigner, err := auth.NewTokenService(testSecret, time.Minute, auth.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	require.NoError(t, err)
	expired, err := expiredSigner.Issue(auth.NewClaims(1, "a@x.com", 2, "Alumno"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantError  string
	}{
		{"no header", "", http.StatusUnauthorized, "missing token"},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, "missing token"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "missing token"},
		{"garbage", "Bearer not-a-jwt", http.StatusForbidden, "invalid or expired token"},
		{"wrong signature", "Bearer " + forged, http.StatusForbidden, "invalid or expired token"},
		{"expired", "Bearer " + expired, http.StatusForbidden, "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/verify-token", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := do(env.handler, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, rec)["error"])
		})
	}

	t.Run("valid token reaches handler with identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verify-token", nil)
		req.Header.Set("Authorization", "bearer "+valid)
		rec := do(env.handler, req)

		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "token valid", body["message"])
		user := body["user"].(map[string]any)
		assert.Equal(t, "1", user["sub"])
		assert.Equal(t, "a@x.com", user["email"])
		assert.Equal(t, float64(2), user["role"])
	})
}

func TestRequireToken_PassesIdentityDownstream(t *testing.T) {
	tokens, err := auth.NewTokenService(testSecret, time.Minute)
	require.NoError(t, err)
	tok, err := tokens.Issue(auth.NewClaims(77, "p@x.com", 3, "Profesor"))
	require.NoError(t, err)

	var seen *auth.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := do(RequireToken(tokens, logging.NewNopLogger())(next), req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.NotNil(t, seen)
	id, err := seen.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
	assert.Equal(t, "Profesor", seen.RoleName)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := do(env.handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	env.pinger.err = errors.New("connection refused")
	rec = do(env.handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	env := newTestEnv(t)
	srv := &Server{handler: env.handler, logger: logging.NewNopLogger()}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
