// Package storage is the persistence shim of the portal. It exposes one
// Store contract over two interchangeable backends: PostgreSQL through pgx,
// and an in-process MemoryStore used when the database is unreachable at
// boot. Callers describe what they want with an Op; they never write SQL.
package storage

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
)

// Unique constraints on users, named as in the schema.
const (
	constraintUserEmail = "users_email_key"
	constraintUserPhone = "users_phone_key"
)

// Uniqueness failures reported by both backends. Both match
// common.ErrorConflict.
var (
	ErrDuplicateEmail = fmt.Errorf("%w: %s", common.ErrorConflict, constraintUserEmail)
	ErrDuplicatePhone = fmt.Errorf("%w: %s", common.ErrorConflict, constraintUserPhone)
)

// Backend names the storage engine behind a Store.
type Backend string

const (
	BackendRelational Backend = "relational"
	BackendMemory     Backend = "memory"
)

// DisplayName is the human-readable backend name reported by /health.
func (b Backend) DisplayName() string {
	switch b {
	case BackendRelational:
		return "PostgreSQL"
	case BackendMemory:
		return "In-Memory"
	default:
		return string(b)
	}
}

// OpKind tags the statement an Op stands for.
type OpKind int

const (
	OpInsertUser OpKind = iota + 1
	OpSelectUserByEmail
	OpSelectUserByPhone
	OpSelectUserByID
	OpUpdateLastLogin
	OpUpdateUser
	OpDeleteUser
	OpSelectUsersPage
)

func (k OpKind) String() string {
	switch k {
	case OpInsertUser:
		return "insert_user"
	case OpSelectUserByEmail:
		return "select_user_by_email"
	case OpSelectUserByPhone:
		return "select_user_by_phone"
	case OpSelectUserByID:
		return "select_user_by_id"
	case OpUpdateLastLogin:
		return "update_last_login"
	case OpUpdateUser:
		return "update_user"
	case OpDeleteUser:
		return "delete_user"
	case OpSelectUsersPage:
		return "select_users_page"
	default:
		return "unknown"
	}
}

// UserFields holds the mutable columns of a user. Nil means "leave as is".
type UserFields struct {
	Name  *string
	Phone *string
}

// Empty reports whether no field is set.
func (f UserFields) Empty() bool {
	return f.Name == nil && f.Phone == nil
}

// Op is a single statement against the users entity. Only the fields that
// belong to Kind are read.
type Op struct {
	Kind   OpKind
	ID     int64
	Email  string
	Phone  string
	User   *models.User
	Fields UserFields
	Limit  int
	Offset int
}

// Result has the same shape for every backend. Rows is empty (not nil)
// when a select matches nothing. Selects by id and page selects never carry
// the password hash.
type Result struct {
	Rows         []models.User
	InsertID     int64
	RowsAffected int64
}

// Store is the uniform query contract over the active backend.
type Store interface {
	// Migrate ensures the schema exists. It is idempotent.
	Migrate(ctx context.Context) error

	// Query runs op and returns its rows or write result.
	Query(ctx context.Context, op Op) (Result, error)

	// Stats counts users and sessions.
	Stats(ctx context.Context) (models.Stats, error)

	// Backend reports which engine is live.
	Backend() Backend

	Close() error
}

func InsertUser(u *models.User) Op { return Op{Kind: OpInsertUser, User: u} }
func SelectUserByEmail(email string) Op { return Op{Kind: OpSelectUserByEmail, Email: email} }
func SelectUserByPhone(phone string) Op { return Op{Kind: OpSelectUserByPhone, Phone: phone} }
func SelectUserByID(id int64) Op { return Op{Kind: OpSelectUserByID, ID: id} }
func UpdateLastLogin(id int64) Op { return Op{Kind: OpUpdateLastLogin, ID: id} }
func UpdateUser(id int64, f UserFields) Op { return Op{Kind: OpUpdateUser, ID: id, Fields: f} }
func DeleteUser(id int64) Op { return Op{Kind: OpDeleteUser, ID: id} }

// SelectUsersPage selects limit users starting at offset, ordered by id.
func SelectUsersPage(limit, offset int) Op {
	return Op{Kind: OpSelectUsersPage, Limit: limit, Offset: offset}
}
