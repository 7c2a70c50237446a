// Package services contains server-side business logic: password login,
// social login account resolution and credential maintenance.
package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/repomanager"
)

// LoginResult is what a successful login hands back to the transport.
type LoginResult struct {
	Token string
	User  models.UserSummary
}

// UserService verifies email/password credentials and mints access tokens.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	logger      logging.Logger

	dummyHash func() (string, error)
}

// NewUserService constructs a UserService. bcryptCost should match the cost
// of stored hashes so that rejected logins for unknown emails take as long
// as real comparisons.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, bcryptCost int, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger.With("module", "user_service"),
		dummyHash: sync.OnceValues(func() (string, error) {
			return auth.HashPassword(rand.Text(), bcryptCost)
		}),
	}
}

// Login checks email and password and returns a signed token plus a user
// summary. Unknown emails and wrong passwords both yield
// common.ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrBadRequest)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.burnComparison(password)
			s.logger.Warn(ctx, "login rejected", "reason", "unknown email")
			return nil, common.ErrInvalidCredentials
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.Warn(ctx, "login rejected", "reason", "password mismatch", "user_id", user.ID, "detail", err)
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.NewClaims(user.ID, user.Email, user.RoleID, user.RoleName))
	if err != nil {
		s.logger.Error(ctx, "token signing failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID)

	return &LoginResult{Token: token, User: user.Summary()}, nil
}

// burnComparison spends the same bcrypt work as a real check.
func (s *UserService) burnComparison(password string) {
	hash, err := s.dummyHash()
	if err != nil {
		return
	}
	_ = auth.CheckPassword(hash, password)
}
