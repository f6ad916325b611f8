package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/dbx"
	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/migrations"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgreSQL error codes mapped at this boundary.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const (
	userColumns       = "id, name, email, phone, password, is_verified, last_login, created_at, updated_at"
	publicUserColumns = "id, name, email, phone, is_verified, last_login, created_at, updated_at"
)

// PostgresStore runs Ops against a pooled *sql.DB opened with the pgx
// driver. Every call is bounded by queryTimeout and holds a connection for
// a single statement only.
type PostgresStore struct {
	db           *sql.DB
	q            dbx.DBTX
	queryTimeout time.Duration
	logger       logging.Logger
}

func NewPostgresStore(db *sql.DB, queryTimeout time.Duration, logger logging.Logger) *PostgresStore {
	return &PostgresStore{
		db:           db,
		q:            db,
		queryTimeout: queryTimeout,
		logger:       logger.With("backend", BackendRelational),
	}
}

func (s *PostgresStore) Backend() Backend {
	return BackendRelational
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded goose migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var st models.Stats
	err := s.q.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM sessions)`,
	).Scan(&st.Users, &st.Sessions)
	if err != nil {
		return models.Stats{}, mapError(err)
	}
	return st, nil
}

func (s *PostgresStore) Query(ctx context.Context, op Op) (Result, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	switch op.Kind {
	case OpInsertUser:
		return s.insertUser(ctx, op.User)
	case OpSelectUserByEmail:
		return s.selectUsers(ctx, true, `SELECT `+userColumns+` FROM users WHERE email = $1`, op.Email)
	case OpSelectUserByPhone:
		return s.selectUsers(ctx, true, `SELECT `+userColumns+` FROM users WHERE phone = $1`, op.Phone)
	case OpSelectUserByID:
		return s.selectUsers(ctx, false, `SELECT `+publicUserColumns+` FROM users WHERE id = $1`, op.ID)
	case OpUpdateLastLogin:
		return s.exec(ctx, `UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1`, op.ID)
	case OpUpdateUser:
		return s.updateUser(ctx, op.ID, op.Fields)
	case OpDeleteUser:
		return s.exec(ctx, `DELETE FROM users WHERE id = $1`, op.ID)
	case OpSelectUsersPage:
		return s.selectUsers(ctx, false,
			`SELECT `+publicUserColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, op.Limit, op.Offset)
	default:
		return Result{}, fmt.Errorf("unsupported op %s", op.Kind)
	}
}

func (s *PostgresStore) insertUser(ctx context.Context, u *models.User) (Result, error) {
	if u == nil {
		return Result{}, fmt.Errorf("%w: no user to insert", common.ErrorValidation)
	}

	query :=
		`INSERT INTO users (name, email, phone, password, is_verified)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`

	var id int64
	err := s.q.QueryRowContext(ctx, query, u.Name, u.Email, u.Phone, u.PasswordHash, u.IsVerified).Scan(&id)
	if err != nil {
		return Result{}, mapError(err)
	}

	return Result{InsertID: id, RowsAffected: 1}, nil
}

func (s *PostgresStore) updateUser(ctx context.Context, id int64, f UserFields) (Result, error) {
	var (
		sets []string
		args []any
	)
	if f.Name != nil {
		args = append(args, *f.Name)
		sets = append(sets, "name = $"+strconv.Itoa(len(args)))
	}
	if f.Phone != nil {
		args = append(args, *f.Phone)
		sets = append(sets, "phone = $"+strconv.Itoa(len(args)))
	}
	if len(sets) == 0 {
		return Result{}, nil
	}
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `, updated_at = NOW() WHERE id = $` + strconv.Itoa(len(args))
	return s.exec(ctx, query, args...)
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) (Result, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return Result{}, mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Result{}, fmt.Errorf("db error: %w", err)
	}
	return Result{RowsAffected: n}, nil
}

func (s *PostgresStore) selectUsers(ctx context.Context, withPassword bool, query string, args ...any) (Result, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return Result{}, mapError(err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		var (
			u         models.User
			lastLogin sql.NullTime
		)
		dest := []any{&u.ID, &u.Name, &u.Email, &u.Phone}
		if withPassword {
			dest = append(dest, &u.PasswordHash)
		}
		dest = append(dest, &u.IsVerified, &lastLogin, &u.CreatedAt, &u.UpdatedAt)

		if err := rows.Scan(dest...); err != nil {
			return Result{}, fmt.Errorf("db error: %w", err)
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return Result{}, mapError(err)
	}

	return Result{Rows: out}, nil
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// mapError turns engine-specific failures into portal sentinels so no
// PostgreSQL vocabulary leaks past the store.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			switch pgErr.ConstraintName {
			case constraintUserEmail:
				return ErrDuplicateEmail
			case constraintUserPhone:
				return ErrDuplicatePhone
			}
			return fmt.Errorf("%w: %s", common.ErrorConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", common.ErrorValidation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("db error: %w", err)
}
