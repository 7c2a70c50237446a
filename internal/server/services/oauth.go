package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/dbx"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
	"github.com/xchange-erasmus/xchange-api/internal/server/oauth"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/repomanager"
)

const (
	// ExternalPlaceholderPassword is stored as the credential of accounts
	// created through GitHub. It is not a bcrypt hash, so password login
	// for those accounts always fails.
	ExternalPlaceholderPassword = "oauth_github_user"

	externalSurname = "GitHub"
)

// IdentityProvider is the part of the provider client the login flow needs.
type IdentityProvider interface {
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error)
}

// OAuthService completes a GitHub login: it exchanges the callback code,
// finds or creates the local account and mints an access token for it.
type OAuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    IdentityProvider
	tokens      *auth.TokenService
	defaultRole string
	logger      logging.Logger
}

func NewOAuthService(db *sql.DB, m repomanager.RepositoryManager, provider IdentityProvider, tokens *auth.TokenService, defaultRole string, logger logging.Logger) *OAuthService {
	return &OAuthService{
		db:          db,
		repomanager: m,
		provider:    provider,
		tokens:      tokens,
		defaultRole: defaultRole,
		logger:      logger.With("module", "oauth_service", "provider", common.ProviderGitHub),
	}
}

// Login runs the server side of the callback for an authorization code.
// Provider failures are returned as *common.ProviderError; storage and
// signing failures as common.ErrorInternal.
func (s *OAuthService) Login(ctx context.Context, code string) (*LoginResult, error) {
	if code == "" {
		return nil, common.ErrMissingCode
	}

	accessToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn(ctx, "code exchange failed", "error", err)
		return nil, err
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		s.logger.Warn(ctx, "profile fetch failed", "error", err)
		return nil, err
	}

	user, err := s.ResolveUser(ctx, profile.ResolvedEmail(), profile.DisplayName())
	if err != nil {
		s.logger.Error(ctx, "account resolution failed", "github_id", profile.ID, "error", err)
		return nil, common.ErrorInternal
	}

	claims := auth.NewClaims(user.ID, user.Email, user.RoleID, user.RoleName)
	claims.Provider = common.ProviderGitHub

	token, err := s.tokens.Issue(claims)
	if err != nil {
		s.logger.Error(ctx, "token signing failed", "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "login succeeded", "user_id", user.ID, "github_id", profile.ID)

	return &LoginResult{Token: token, User: user.Summary()}, nil
}

// ResolveUser returns the account registered under email, creating it with
// the default role and a companion profile when none exists. Concurrent
// first logins for the same email converge on a single row: the unique
// email index decides the winner and the loser re-reads it.
func (s *OAuthService) ResolveUser(ctx context.Context, email, displayName string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	created, err := dbx.WithTxResult(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (bool, error) {
		id, created, err := s.repomanager.Users(tx).CreateExternal(ctx, email, ExternalPlaceholderPassword, s.defaultRole)
		if err != nil {
			return false, fmt.Errorf("create user: %w", err)
		}
		if !created {
			return false, nil
		}

		profile := &models.Profile{UserID: id, Nombre: displayName, Apellido1: externalSurname}
		if err := s.repomanager.Profiles(tx).Create(ctx, profile); err != nil {
			return false, fmt.Errorf("create profile: %w", err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	user, err = repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("user %q was not created, is role %q seeded: %w", email, s.defaultRole, err)
		}
		return nil, fmt.Errorf("reload user: %w", err)
	}

	if created {
		s.logger.Info(ctx, "account created", "user_id", user.ID)
	}

	return user, nil
}
