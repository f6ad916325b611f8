// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, profile lookup and logout
// on top of the user repository, the password hasher and signed tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/auth"
	"github.com/dmitrijs2005/saralseva/internal/server/config"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/repositories/users"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
	"github.com/dmitrijs2005/saralseva/internal/server/validation"
)

// Domain failures. Each wraps the common sentinel that decides its status.
var (
	ErrEmailTaken         = fmt.Errorf("%w: user already exists with this email", common.ErrorConflict)
	ErrPhoneTaken         = fmt.Errorf("%w: user already exists with this phone number", common.ErrorConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", common.ErrorUnauthorized)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", common.ErrorNotFound)
)

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      models.PublicUser
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint a token
// - GetProfile: load the account behind a verified token
// - Logout: acknowledge; tokens are stateless
type UserService struct {
	users     users.Repository
	hasher    Hasher
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    logging.Logger
	now       func() time.Time

	// decoy is compared against when the email is unknown so that the
	// response time does not reveal whether the account exists.
	decoy string
}

// NewUserService constructs a UserService using the repository and server
// config. It hashes the decoy password up front, which costs one bcrypt
// round at startup.
func NewUserService(repo users.Repository, hasher Hasher, cfg *config.Config, logger logging.Logger) *UserService {
	s := &UserService{
		users:     repo,
		hasher:    hasher,
		jwtSecret: []byte(cfg.SecretKey),
		tokenTTL:  cfg.TokenTTL,
		logger:    logger.With("module", "services.user"),
		now:       time.Now,
	}

	d, err := hasher.Hash("decoy-password-never-matches")
	if err != nil {
		s.logger.Error(context.Background(), "could not build decoy digest", "error", err)
	}
	s.decoy = d
	return s
}

// Register creates an account and returns its id. Email is checked before
// phone; a race that slips past both checks is caught by the store's
// uniqueness constraint and reported the same way.
func (s *UserService) Register(ctx context.Context, cmd validation.RegisterCommand) (int64, error) {
	if _, err := s.users.FindByEmail(ctx, cmd.Email); err == nil {
		return 0, ErrEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return 0, internalErr("find user by email", err)
	}

	if _, err := s.users.FindByPhone(ctx, cmd.Phone); err == nil {
		return 0, ErrPhoneTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return 0, internalErr("find user by phone", err)
	}

	digest, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return 0, internalErr("hash password", err)
	}

	id, err := s.users.Create(ctx, &models.User{
		Name:         cmd.Name,
		Email:        cmd.Email,
		Phone:        cmd.Phone,
		PasswordHash: digest,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicatePhone):
			return 0, ErrPhoneTaken
		case errors.Is(err, common.ErrorConflict):
			return 0, ErrEmailTaken
		}
		return 0, internalErr("create user", err)
	}

	s.logger.Info(ctx, "new user registered", "user_id", id, "email", cmd.Email)
	return id, nil
}

// Login verifies credentials and issues a token. An unknown email and a
// wrong password produce the same error, and both run one bcrypt
// comparison. A failed last-login update is logged and otherwise ignored;
// a successful one is reflected in the returned user.
func (s *UserService) Login(ctx context.Context, cmd validation.LoginCommand) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, cmd.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(cmd.Password, s.decoy)
			return nil, ErrInvalidCredentials
		}
		return nil, internalErr("find user by email", err)
	}

	if !s.hasher.Verify(cmd.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if ok, err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "could not record last login", "user_id", user.ID, "error", err)
	} else if ok {
		at := s.now()
		user.LastLogin = &at
	}

	token, expires, err := auth.GenerateToken(auth.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, internalErr("issue token", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID, "email", user.Email)
	return &LoginResult{Token: token, ExpiresAt: expires, User: user.Public()}, nil
}

// GetProfile returns the public projection of the account with userID.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*models.PublicUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, internalErr("find user by id", err)
	}
	p := user.Public()
	return &p, nil
}

// Logout changes nothing server-side; the client discards its token.
func (s *UserService) Logout(ctx context.Context, id auth.Identity) {
	s.logger.Info(ctx, "user logged out", "user_id", id.UserID, "email", id.Email)
}

// ValidateToken verifies a bearer token and returns who it was issued to.
// It fails with common.ErrTokenExpired or common.ErrInvalidToken.
func (s *UserService) ValidateToken(token string) (auth.Identity, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return auth.Identity{}, err
	}
	return claims.Identity(), nil
}

func internalErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrorInternal, op, err)
}
