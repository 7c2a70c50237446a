// Package rest exposes the authentication API over HTTP using chi.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"

	"github.com/xchange-erasmus/xchange-api/internal/logging"
)

const (
	requestTimeout    = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Options carries the transport settings.
type Options struct {
	Address      string
	StateKey     []byte
	TokenTTL     time.Duration
	SuccessURL   string
	ErrorURL     string
	CookieSecure bool
}

// Dependencies are the services the handlers call into.
type Dependencies struct {
	Users    PasswordAuthenticator
	OAuth    CodeAuthenticator
	Provider AuthorizationRedirector
	Tokens   TokenVerifier
	DB       Pinger
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(opts Options, deps Dependencies, logger logging.Logger) *Server {
	logger = logger.With("module", "rest_server")

	state := securecookie.New(opts.StateKey, nil)
	state.MaxAge(int(stateTTL.Seconds()))

	h := &handlers{
		users:    deps.Users,
		oauth:    deps.OAuth,
		provider: deps.Provider,
		db:       deps.DB,
		state:    state,
		opts:     opts,
		logger:   logger,
	}

	return &Server{
		address: opts.Address,
		handler: newRouter(h, deps.Tokens, logger),
		logger:  logger,
	}
}

func newRouter(h *handlers, tokens TokenVerifier, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(requestTimeout),
	)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Get("/github", h.githubStart)
		r.Get("/github/callback", h.githubCallback)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireToken(tokens, logger))
		r.Get("/verify-token", h.verifyToken)
	})

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", listener.Addr().String())
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
