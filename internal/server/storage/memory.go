package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/logging"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
)

// MemoryStore keeps users and sessions in process memory for local
// development without a database. It reproduces the PostgreSQL result shape
// for every Op, including email/phone uniqueness, and loses all data on
// restart. Identifiers come from a monotonic counter and are never reused.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []*models.User // ordered by id
	byEmail  map[string]*models.User
	byPhone  map[string]*models.User
	sessions []models.Session
	nextID   int64
	now      func() time.Time
	logger   logging.Logger
}

func NewMemoryStore(logger logging.Logger) *MemoryStore {
	return &MemoryStore{
		byEmail: make(map[string]*models.User),
		byPhone: make(map[string]*models.User),
		nextID:  1,
		now:     time.Now,
		logger:  logger.With("backend", BackendMemory),
	}
}

func (m *MemoryStore) Backend() Backend {
	return BackendMemory
}

// Migrate has nothing to create; collections exist from construction.
func (m *MemoryStore) Migrate(ctx context.Context) error {
	m.logger.Debug(ctx, "table creation simulated in memory")
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) Stats(ctx context.Context) (models.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return models.Stats{Users: int64(len(m.users)), Sessions: int64(len(m.sessions))}, nil
}

func (m *MemoryStore) Query(ctx context.Context, op Op) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch op.Kind {
	case OpInsertUser:
		return m.insertUser(op.User)
	case OpSelectUserByEmail:
		return m.selectOne(func() *models.User { return m.byEmail[op.Email] }, true), nil
	case OpSelectUserByPhone:
		return m.selectOne(func() *models.User { return m.byPhone[op.Phone] }, true), nil
	case OpSelectUserByID:
		return m.selectOne(func() *models.User { return m.find(op.ID) }, false), nil
	case OpUpdateLastLogin:
		return m.updateLastLogin(op.ID), nil
	case OpUpdateUser:
		return m.updateUser(op.ID, op.Fields)
	case OpDeleteUser:
		return m.deleteUser(op.ID), nil
	case OpSelectUsersPage:
		return m.selectPage(op.Limit, op.Offset), nil
	default:
		return Result{}, fmt.Errorf("unsupported op %s", op.Kind)
	}
}

func (m *MemoryStore) insertUser(u *models.User) (Result, error) {
	if u == nil {
		return Result{}, fmt.Errorf("%w: no user to insert", common.ErrorValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[u.Email]; ok {
		return Result{}, ErrDuplicateEmail
	}
	if _, ok := m.byPhone[u.Phone]; ok {
		return Result{}, ErrDuplicatePhone
	}

	now := m.now()
	row := &models.User{
		ID:           m.nextID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		IsVerified:   u.IsVerified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.nextID++

	m.users = append(m.users, row)
	m.byEmail[row.Email] = row
	m.byPhone[row.Phone] = row

	return Result{InsertID: row.ID, RowsAffected: 1}, nil
}

func (m *MemoryStore) selectOne(lookup func() *models.User, withPassword bool) Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u := lookup()
	if u == nil {
		return Result{Rows: []models.User{}}
	}
	return Result{Rows: []models.User{project(u, withPassword)}}
}

func (m *MemoryStore) updateLastLogin(id int64) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.find(id)
	if u == nil {
		return Result{}
	}
	now := m.now()
	u.LastLogin = &now
	u.UpdatedAt = now
	return Result{RowsAffected: 1}
}

func (m *MemoryStore) updateUser(id int64, f UserFields) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.find(id)
	if u == nil {
		return Result{}, nil
	}

	if f.Phone != nil && *f.Phone != u.Phone {
		if _, taken := m.byPhone[*f.Phone]; taken {
			return Result{}, ErrDuplicatePhone
		}
		delete(m.byPhone, u.Phone)
		u.Phone = *f.Phone
		m.byPhone[u.Phone] = u
	}
	if f.Name != nil {
		u.Name = *f.Name
	}
	u.UpdatedAt = m.now()

	return Result{RowsAffected: 1}, nil
}

func (m *MemoryStore) deleteUser(id int64) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, u := range m.users {
		if u.ID != id {
			continue
		}
		m.users = append(m.users[:i], m.users[i+1:]...)
		delete(m.byEmail, u.Email)
		delete(m.byPhone, u.Phone)
		return Result{RowsAffected: 1}
	}
	return Result{}
}

func (m *MemoryStore) selectPage(limit, offset int) Result {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := []models.User{}
	if offset < 0 || limit <= 0 || offset >= len(m.users) {
		return Result{Rows: rows}
	}
	end := min(offset+limit, len(m.users))
	for _, u := range m.users[offset:end] {
		rows = append(rows, project(u, false))
	}
	return Result{Rows: rows}
}

// find must be called with mu held.
func (m *MemoryStore) find(id int64) *models.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// project copies u so callers never alias stored rows.
func project(u *models.User, withPassword bool) models.User {
	row := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		row.LastLogin = &t
	}
	if !withPassword {
		row.PasswordHash = ""
	}
	return row
}
