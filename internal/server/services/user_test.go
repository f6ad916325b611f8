package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/auth"
	"github.com/dmitrijs2005/saralseva/internal/server/config"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/repositories/users"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
	"github.com/dmitrijs2005/saralseva/internal/server/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

func testConfig() *config.Config {
	return &config.Config{SecretKey: "test-secret", TokenTTL: time.Hour}
}

func newMemoryService(t *testing.T) (*UserService, *users.StoreRepository) {
	t.Helper()
	repo := users.NewStoreRepository(storage.NewMemoryStore(logging.Nop()))
	return NewUserService(repo, auth.NewPasswordHasher(bcrypt.MinCost), testConfig(), logging.Nop()), repo
}

func asha() validation.RegisterCommand {
	return validation.RegisterCommand{Name: "Asha Rao", Email: "asha@example.com", Phone: "9876543210", Password: "Str0ngPass"}
}

// fakeRepo lets tests inject failures per operation.
type fakeRepo struct {
	users.Repository

	findEmailOut *models.User
	findEmailErr error
	findPhoneErr error
	findIDOut    *models.User
	findIDErr    error
	createErr    error
	lastLoginErr error

	created   *models.User
	lastLogin []int64
}

func (f *fakeRepo) FindByEmail(context.Context, string) (*models.User, error) {
	return f.findEmailOut, f.findEmailErr
}

func (f *fakeRepo) FindByPhone(context.Context, string) (*models.User, error) {
	return nil, f.findPhoneErr
}

func (f *fakeRepo) FindByID(context.Context, int64) (*models.User, error) {
	return f.findIDOut, f.findIDErr
}

func (f *fakeRepo) Create(_ context.Context, u *models.User) (int64, error) {
	f.created = u
	if f.createErr != nil {
		return 0, f.createErr
	}
	return 1, nil
}

func (f *fakeRepo) UpdateLastLogin(_ context.Context, id int64) (bool, error) {
	f.lastLogin = append(f.lastLogin, id)
	return f.lastLoginErr == nil, f.lastLoginErr
}

// countingHasher records how often Hash and Verify run.
type countingHasher struct {
	*auth.PasswordHasher
	hashes   int
	verifies int
	hashErr  error
}

func (h *countingHasher) Hash(p string) (string, error) {
	h.hashes++
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return h.PasswordHasher.Hash(p)
}

func (h *countingHasher) Verify(p, d string) bool {
	h.verifies++
	return h.PasswordHasher.Verify(p, d)
}

// --- Register ---

func TestRegister_StoresHashNotPlaintext(t *testing.T) {
	s, repo := newMemoryService(t)

	id, err := s.Register(context.Background(), asha())
	require.NoError(t, err)
	assert.Positive(t, id)

	u, err := repo.FindByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ngPass", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Str0ngPass")))
	assert.False(t, u.IsVerified)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	s, _ := newMemoryService(t)
	_, err := s.Register(context.Background(), asha())
	require.NoError(t, err)

	again := asha()
	again.Phone = "9123456780"
	again.Password = "Different1Pass"
	_, err = s.Register(context.Background(), again)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.ErrorIs(t, err, common.ErrorConflict)
}

func TestRegister_DuplicatePhone(t *testing.T) {
	s, _ := newMemoryService(t)
	_, err := s.Register(context.Background(), asha())
	require.NoError(t, err)

	other := asha()
	other.Email = "other@example.com"
	_, err = s.Register(context.Background(), other)
	assert.ErrorIs(t, err, ErrPhoneTaken)
}

func TestRegister_ConstraintRaceIsConflict(t *testing.T) {
	tests := []struct {
		name      string
		createErr error
		want      error
	}{
		{"email constraint", storage.ErrDuplicateEmail, ErrEmailTaken},
		{"phone constraint", fmt.Errorf("create user: %w", storage.ErrDuplicatePhone), ErrPhoneTaken},
		{"phone named in message only", errors.Join(common.ErrorConflict, errors.New("phone")), ErrEmailTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{findEmailErr: common.ErrorNotFound, findPhoneErr: common.ErrorNotFound, createErr: tt.createErr}
			s := NewUserService(repo, auth.NewPasswordHasher(bcrypt.MinCost), testConfig(), logging.Nop())

			_, err := s.Register(context.Background(), asha())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegister_BackendFailureIsInternal(t *testing.T) {
	boom := errors.New("db error: connection reset")

	tests := []struct {
		name string
		repo *fakeRepo
		hash error
	}{
		{"find by email", &fakeRepo{findEmailErr: boom}, nil},
		{"find by phone", &fakeRepo{findEmailErr: common.ErrorNotFound, findPhoneErr: boom}, nil},
		{"create", &fakeRepo{findEmailErr: common.ErrorNotFound, findPhoneErr: common.ErrorNotFound, createErr: boom}, nil},
		{"hash", &fakeRepo{findEmailErr: common.ErrorNotFound, findPhoneErr: common.ErrorNotFound}, errors.New("bcrypt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &countingHasher{PasswordHasher: auth.NewPasswordHasher(bcrypt.MinCost), hashErr: tt.hash}
			s := NewUserService(tt.repo, h, testConfig(), logging.Nop())

			_, err := s.Register(context.Background(), asha())
			assert.ErrorIs(t, err, common.ErrorInternal)
			assert.NotErrorIs(t, err, common.ErrorConflict)
		})
	}
}

// --- Login ---

func TestLogin_Success(t *testing.T) {
	s, repo := newMemoryService(t)
	id, err := s.Register(context.Background(), asha())
	require.NoError(t, err)

	res, err := s.Login(context.Background(), validation.LoginCommand{Email: "asha@example.com", Password: "Str0ngPass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, id, res.User.ID)
	assert.Equal(t, "Asha", res.User.FirstName)
	assert.Equal(t, "Rao", res.User.LastName)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	ident, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: id, Email: "asha@example.com", Name: "Asha Rao"}, ident)

	u, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u.LastLogin)
	require.NotNil(t, res.User.LastLogin, "first login reports the login it just recorded")
	assert.WithinDuration(t, *u.LastLogin, *res.User.LastLogin, time.Second)
}

func TestLogin_ReportsRecordedLastLogin(t *testing.T) {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("Str0ngPass")
	require.NoError(t, err)

	previous := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	repo := &fakeRepo{
		findEmailOut: &models.User{ID: 9, Name: "Asha Rao", Email: "asha@example.com", PasswordHash: digest, LastLogin: &previous},
	}
	s := NewUserService(repo, hasher, testConfig(), logging.Nop())
	s.now = func() time.Time { return at }

	res, err := s.Login(context.Background(), validation.LoginCommand{Email: "asha@example.com", Password: "Str0ngPass"})
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLogin)
	assert.Equal(t, at, *res.User.LastLogin)
}

func TestLogin_UnknownEmailRunsNoExtraHash(t *testing.T) {
	h := &countingHasher{PasswordHasher: auth.NewPasswordHasher(bcrypt.MinCost)}
	s := NewUserService(&fakeRepo{findEmailErr: common.ErrorNotFound}, h, testConfig(), logging.Nop())
	require.Equal(t, 1, h.hashes, "decoy digest is built by the constructor")

	for range 2 {
		_, err := s.Login(context.Background(), validation.LoginCommand{Email: "ghost@example.com", Password: "Str0ngPass"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Equal(t, 1, h.hashes)
	assert.Equal(t, 2, h.verifies)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	h := &countingHasher{PasswordHasher: auth.NewPasswordHasher(bcrypt.MinCost)}
	repo := users.NewStoreRepository(storage.NewMemoryStore(logging.Nop()))
	s := NewUserService(repo, h, testConfig(), logging.Nop())

	_, err := s.Register(context.Background(), asha())
	require.NoError(t, err)

	_, wrongPass := s.Login(context.Background(), validation.LoginCommand{Email: "asha@example.com", Password: "WrongPass1"})
	_, unknown := s.Login(context.Background(), validation.LoginCommand{Email: "ghost@example.com", Password: "Str0ngPass"})

	require.Error(t, wrongPass)
	require.Error(t, unknown)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
	assert.ErrorIs(t, wrongPass, common.ErrorUnauthorized)
	assert.ErrorIs(t, unknown, ErrInvalidCredentials)
	assert.Equal(t, 2, h.verifies, "unknown email still runs one comparison")
}

func TestLogin_LastLoginFailureIsIgnored(t *testing.T) {
	hasher := auth.NewPasswordHasher(bcrypt.MinCost)
	digest, err := hasher.Hash("Str0ngPass")
	require.NoError(t, err)

	repo := &fakeRepo{
		findEmailOut: &models.User{ID: 9, Name: "Asha Rao", Email: "asha@example.com", PasswordHash: digest},
		lastLoginErr: errors.New("db error: timeout"),
	}
	s := NewUserService(repo, hasher, testConfig(), logging.Nop())

	res, err := s.Login(context.Background(), validation.LoginCommand{Email: "asha@example.com", Password: "Str0ngPass"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, []int64{9}, repo.lastLogin)
	assert.Nil(t, res.User.LastLogin)
}

func TestLogin_BackendFailureIsInternal(t *testing.T) {
	repo := &fakeRepo{findEmailErr: errors.New("db error: gone")}
	s := NewUserService(repo, auth.NewPasswordHasher(bcrypt.MinCost), testConfig(), logging.Nop())

	_, err := s.Login(context.Background(), validation.LoginCommand{Email: "a@example.com", Password: "x"})
	assert.ErrorIs(t, err, common.ErrorInternal)
	assert.NotErrorIs(t, err, common.ErrorUnauthorized)
}

// --- GetProfile / Logout / ValidateToken ---

func TestGetProfile(t *testing.T) {
	s, repo := newMemoryService(t)
	id, err := s.Register(context.Background(), asha())
	require.NoError(t, err)

	p, err := s.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", p.Name)
	assert.Equal(t, "asha@example.com", p.Email)
	assert.Equal(t, "9876543210", p.Phone)

	_, err = repo.Delete(context.Background(), id)
	require.NoError(t, err)

	_, err = s.GetProfile(context.Background(), id)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetProfile_BackendFailure(t *testing.T) {
	s := NewUserService(&fakeRepo{findIDErr: errors.New("boom")}, auth.NewPasswordHasher(bcrypt.MinCost), testConfig(), logging.Nop())
	_, err := s.GetProfile(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorInternal)
}

func TestLogout_IsAcknowledgementOnly(t *testing.T) {
	s, _ := newMemoryService(t)
	_, err := s.Register(context.Background(), asha())
	require.NoError(t, err)
	res, err := s.Login(context.Background(), validation.LoginCommand{Email: "asha@example.com", Password: "Str0ngPass"})
	require.NoError(t, err)

	ident, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	s.Logout(context.Background(), ident)

	// tokens are stateless; the token stays valid until it expires
	_, err = s.ValidateToken(res.Token)
	assert.NoError(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	s, _ := newMemoryService(t)

	_, err := s.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	other := NewUserService(nil, auth.NewPasswordHasher(bcrypt.MinCost), &config.Config{SecretKey: "other", TokenTTL: time.Hour}, logging.Nop())
	tok, _, err := auth.GenerateToken(auth.Identity{UserID: 1}, []byte("other"), time.Hour)
	require.NoError(t, err)
	_, err = other.ValidateToken(tok)
	require.NoError(t, err)

	_, err = s.ValidateToken(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	expired, _, err := auth.GenerateToken(auth.Identity{UserID: 1}, []byte("test-secret"), -time.Minute)
	require.NoError(t, err)
	_, err = s.ValidateToken(expired)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}
