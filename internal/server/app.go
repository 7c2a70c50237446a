// Package server wires configuration, storage, services and the REST
// transport together and runs them until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/config"
	"github.com/xchange-erasmus/xchange-api/internal/server/oauth"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/repomanager"
	"github.com/xchange-erasmus/xchange-api/internal/server/rest"
	"github.com/xchange-erasmus/xchange-api/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

// OpenDB opens the pgx-backed pool and applies pending migrations.
func OpenDB(ctx context.Context, cfg *config.Config, rm repomanager.RepositoryManager, logger logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	applied, err := rm.RunMigrations(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.Info(ctx, "migrations applied", "versions", applied)
	}
	return db, nil
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	rm := repomanager.NewPostgresRepositoryManager()
	db, err := OpenDB(ctx, cfg, rm, logger)
	if err != nil {
		return nil, err
	}

	if cfg.GitHubEnabled() {
		if _, err := rm.Roles(db).GetByName(ctx, cfg.DefaultRoleName); err != nil {
			_ = db.Close()
			if errors.Is(err, common.ErrorNotFound) {
				return nil, fmt.Errorf("%w: default role %q does not exist", common.ErrConfiguration, cfg.DefaultRoleName)
			}
			return nil, fmt.Errorf("default role lookup: %w", err)
		}
	}

	tokens, err := auth.NewTokenService(cfg.SecretKey, cfg.AccessTokenValidityDuration)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	provider := oauth.NewGitHubProvider(oauth.GitHubConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURI:  cfg.GitHubRedirectURI,
		Scopes:       cfg.GitHubScopes,
		AuthURL:      cfg.GitHubAuthURL,
		TokenURL:     cfg.GitHubTokenURL,
		APIURL:       cfg.GitHubAPIURL,
		Timeout:      cfg.ProviderTimeout,
	})

	users := services.NewUserService(db, rm, tokens, cfg.BcryptCost, logger)
	social := services.NewOAuthService(db, rm, provider, tokens, cfg.DefaultRoleName, logger)

	srv := rest.NewServer(rest.Options{
		Address:      cfg.EndpointAddrHTTP,
		StateKey:     []byte(cfg.SecretKey),
		TokenTTL:     cfg.AccessTokenValidityDuration,
		SuccessURL:   cfg.OAuthSuccessURL,
		ErrorURL:     cfg.OAuthErrorURL,
		CookieSecure: cfg.CookieSecure,
	}, rest.Dependencies{
		Users:    users,
		OAuth:    social,
		Provider: provider,
		Tokens:   tokens,
		DB:       db,
	}, logger)

	return &App{config: cfg, logger: logger, db: db, server: srv}, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// the listener down and closes the pool.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP, "github_login", app.config.GitHubEnabled())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(context.Background(), "db close error", "error", cerr)
	}
	app.logger.Info(context.Background(), "App stopped")
	return err
}
