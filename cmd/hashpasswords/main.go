// Command hashpasswords converts plaintext passwords stored in usuarios to
// bcrypt hashes. With -email it instead sets a new password for one user,
// read from the terminal without echo.
//
// It accepts the server's storage flags (-d, -c, -env-file) and DATABASE_URL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/xchange-erasmus/xchange-api/internal/flagx"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server"
	"github.com/xchange-erasmus/xchange-api/internal/server/config"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/repomanager"
	"github.com/xchange-erasmus/xchange-api/internal/server/services"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// credentialStore is the part of services.CredentialService the command drives.
type credentialStore interface {
	RehashAll(ctx context.Context) (*services.RehashReport, error)
	SetPassword(ctx context.Context, email, password string) error
}

func main() {
	if err := execute(); err != nil {
		log.Fatalf("%v", err)
	}
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	email := emailFlag(os.Args[1:])

	cfg := config.Load()
	if cfg.DatabaseDSN == "" {
		return errors.New("database DSN is not set")
	}

	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)
	rm := repomanager.NewPostgresRepositoryManager()

	db, err := server.OpenDB(ctx, cfg, rm, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return run(ctx, services.NewCredentialService(db, rm, cfg.BcryptCost, logger), email, os.Stdout)
}

// emailFlag returns the value of -email, ignoring flags owned by the
// config loader.
func emailFlag(args []string) string {
	var email string
	fs := flag.NewFlagSet("hashpasswords", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&email, "email", "", "set the password of this user instead of rehashing everyone")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-email", "--email"}))
	return email
}

func run(ctx context.Context, store credentialStore, email string, w io.Writer) error {
	if email == "" {
		report, err := store.RehashAll(ctx)
		if report != nil {
			fmt.Fprintf(w, "rehashed: %d, already hashed: %d, external accounts: %d\n",
				report.Updated, report.Hashed, report.External)
		}
		return err
	}

	password, err := promptPassword(w, "New password for "+email+": ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword(w, "Repeat password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	if err := store.SetPassword(ctx, email, password); err != nil {
		return err
	}
	fmt.Fprintf(w, "password updated for %s\n", email)
	return nil
}

func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
