// Command seeduser (re)creates a verified account in the PostgreSQL
// database so that the login flow can be tried right after deployment.
//
// Usage:
//
//	seeduser [-email test@example.com] [-phone 9876543210] [-name "Test User"] [-password secret]
//
// Without -password the password is read from the terminal without echo.
// Database settings come from the same sources as the server (JSON file,
// DB_* environment variables).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/flagx"
	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/auth"
	"github.com/dmitrijs2005/saralseva/internal/server/config"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/repositories/users"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
	"github.com/dmitrijs2005/saralseva/internal/server/validation"
	"golang.org/x/term"
)

type options struct {
	name     string
	email    string
	phone    string
	password string
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stderr, cfg.LogLevel)

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fail(err)
	}
	if opts.password == "" {
		if opts.password, err = readPassword(os.Stdin, os.Stdout); err != nil {
			fail(err)
		}
	}

	store, err := storage.Open(ctx, storage.Options{
		DSN:          cfg.DatabaseDSN(),
		PoolSize:     1,
		ProbeTimeout: cfg.DBProbeTimeout,
		QueryTimeout: cfg.DBQueryTimeout,
	}, logger)
	if err != nil {
		fail(err)
	}
	defer store.Close()

	if store.Backend() != storage.BackendRelational {
		fail(errors.New("PostgreSQL is not reachable; refusing to seed the in-memory store"))
	}

	repo := users.NewStoreRepository(store)
	id, err := seed(ctx, repo, auth.NewPasswordHasher(cfg.BcryptCost), opts)
	if err != nil {
		fail(err)
	}

	fmt.Printf("Test user created. id=%d email=%s phone=%s\n", id, opts.email, opts.phone)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "seeduser:", err)
	os.Exit(1)
}

func parseOptions(args []string) (options, error) {
	args = flagx.FilterArgs(args, []string{"-name", "-email", "-phone", "-password"})

	var o options
	fs := flag.NewFlagSet("seeduser", flag.ContinueOnError)
	fs.StringVar(&o.name, "name", "Test User", "display name")
	fs.StringVar(&o.email, "email", "test@example.com", "email address")
	fs.StringVar(&o.phone, "phone", "9876543210", "10-digit phone number")
	fs.StringVar(&o.password, "password", "", "password (prompted when empty)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return o, nil
}

// readPassword prompts without echo on a terminal and reads one line
// otherwise, so the password can also be piped in.
func readPassword(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}

	fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// seed removes any account holding the email or phone and inserts a fresh
// verified one.
func seed(ctx context.Context, repo users.Repository, hasher *auth.PasswordHasher, o options) (int64, error) {
	cmd, err := validation.Register(validation.RegisterRequest{
		Name:     o.name,
		Email:    o.email,
		Phone:    o.phone,
		Password: o.password,
	})
	if err != nil {
		return 0, err
	}

	for _, find := range []func() (*models.User, error){
		func() (*models.User, error) { return repo.FindByEmail(ctx, cmd.Email) },
		func() (*models.User, error) { return repo.FindByPhone(ctx, cmd.Phone) },
	} {
		u, err := find()
		if errors.Is(err, common.ErrorNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		if _, err := repo.Delete(ctx, u.ID); err != nil {
			return 0, fmt.Errorf("delete existing user %d: %w", u.ID, err)
		}
	}

	digest, err := hasher.Hash(cmd.Password)
	if err != nil {
		return 0, err
	}

	return repo.Create(ctx, &models.User{
		Name:         cmd.Name,
		Email:        cmd.Email,
		Phone:        cmd.Phone,
		PasswordHash: digest,
		IsVerified:   true,
	})
}
