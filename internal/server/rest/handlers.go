package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
	"github.com/xchange-erasmus/xchange-api/internal/server/services"
)

const stateTTL = 10 * time.Minute

// PasswordAuthenticator logs users in with email and password.
type PasswordAuthenticator interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// CodeAuthenticator completes a social login from a callback code.
type CodeAuthenticator interface {
	Login(ctx context.Context, code string) (*services.LoginResult, error)
}

// AuthorizationRedirector builds the provider consent URL.
type AuthorizationRedirector interface {
	Configured() bool
	AuthCodeURL(state string) string
}

// Pinger reports database reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type handlers struct {
	users    PasswordAuthenticator
	oauth    CodeAuthenticator
	provider AuthorizationRedirector
	db       Pinger
	state    *securecookie.SecureCookie
	opts     Options
	logger   logging.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool               `json:"success"`
	Token   string             `json:"token"`
	User    models.UserSummary `json:"user"`
}

type verifyResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	User    *auth.Claims `json:"user"`
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Success: true, Token: res.Token, User: res.User})
}

func (h *handlers) githubStart(w http.ResponseWriter, r *http.Request) {
	if !h.provider.Configured() {
		h.logger.Error(r.Context(), "github login requested but no client id is configured")
		writeServiceError(w, common.ErrConfiguration)
		return
	}

	state := uuid.NewString()
	encoded, err := h.state.Encode(common.OAuthStateCookieName, state)
	if err != nil {
		h.logger.Error(r.Context(), "state cookie encoding failed", "error", err)
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.OAuthStateCookieName,
		Value:    encoded,
		Path:     "/auth/github",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

func (h *handlers) githubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if upstream := q.Get("error"); upstream != "" {
		msg := q.Get("error_description")
		if msg == "" {
			msg = upstream
		}
		h.logger.Warn(r.Context(), "provider returned an error", "error", upstream, "description", q.Get("error_description"))
		h.redirectWithError(w, r, msg)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeServiceError(w, common.ErrMissingCode)
		return
	}

	if !h.validState(r, q.Get("state")) {
		h.logger.Warn(r.Context(), "oauth state mismatch")
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}
	h.clearStateCookie(w)

	res, err := h.oauth.Login(r.Context(), code)
	if err != nil {
		h.redirectWithError(w, r, userMessage(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.opts.TokenTTL.Seconds()),
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.opts.SuccessURL, http.StatusFound)
}

func (h *handlers) validState(r *http.Request, got string) bool {
	if got == "" {
		return false
	}
	cookie, err := r.Cookie(common.OAuthStateCookieName)
	if err != nil {
		return false
	}
	var want string
	if err := h.state.Decode(common.OAuthStateCookieName, cookie.Value, &want); err != nil {
		return false
	}
	return want == got
}

func (h *handlers) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.OAuthStateCookieName,
		Value:    "",
		Path:     "/auth/github",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *handlers) redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	target, err := url.Parse(h.opts.ErrorURL)
	if err != nil {
		writeError(w, http.StatusBadGateway, msg)
		return
	}
	query := target.Query()
	query.Set("error", msg)
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// userMessage turns a login failure into text fit for the error page.
func userMessage(err error) string {
	var pe *common.ProviderError
	if errors.As(err, &pe) {
		return "GitHub login failed: " + pe.Message()
	}
	return "GitHub login failed, please try again later"
}

func (h *handlers) verifyToken(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeServiceError(w, common.ErrMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Success: true, Message: "token valid", User: claims})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Error(r.Context(), "health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
