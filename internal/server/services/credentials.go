package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/repomanager"
)

// RehashReport summarizes a RehashAll run.
type RehashReport struct {
	Updated  int
	Hashed   int
	External int
}

// CredentialService maintains stored passwords outside the request path.
type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cost        int
	logger      logging.Logger
}

func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, bcryptCost int, logger logging.Logger) *CredentialService {
	return &CredentialService{
		db:          db,
		repomanager: m,
		cost:        bcryptCost,
		logger:      logger.With("module", "credential_service"),
	}
}

// RehashAll replaces every plaintext credential with its bcrypt hash.
// Values that already are bcrypt hashes and OAuth placeholders are left
// alone, so running it twice is harmless.
func (s *CredentialService) RehashAll(ctx context.Context) (*RehashReport, error) {
	repo := s.repomanager.Users(s.db)

	creds, err := repo.ListCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	report := &RehashReport{}
	for _, c := range creds {
		switch {
		case c.PasswordHash == ExternalPlaceholderPassword:
			report.External++
			continue
		case auth.IsBcryptHash(c.PasswordHash):
			report.Hashed++
			continue
		}

		hash, err := auth.HashPassword(c.PasswordHash, s.cost)
		if err != nil {
			return report, fmt.Errorf("user %d: %w", c.UserID, err)
		}
		if err := repo.UpdatePassword(ctx, c.UserID, hash); err != nil {
			return report, fmt.Errorf("user %d: %w", c.UserID, err)
		}

		report.Updated++
		s.logger.Info(ctx, "password rehashed", "user_id", c.UserID)
	}

	return report, nil
}

// SetPassword stores a new bcrypt hash for the user registered under email.
func (s *CredentialService) SetPassword(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return fmt.Errorf("%w: email and password are required", common.ErrBadRequest)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("user %q: %w", email, err)
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password, s.cost)
	if err != nil {
		return err
	}
	if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info(ctx, "password set", "user_id", user.ID)
	return nil
}
