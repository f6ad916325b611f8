// Package users implements the user repository on top of the storage shim.
package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/server/models"
	"github.com/dmitrijs2005/saralseva/internal/server/storage"
)

const defaultPageSize = 10

type StoreRepository struct {
	store storage.Store
}

func NewStoreRepository(store storage.Store) *StoreRepository {
	return &StoreRepository{store: store}
}

func (r *StoreRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, storage.SelectUserByEmail(email))
}

func (r *StoreRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, storage.SelectUserByPhone(phone))
}

// FindByID returns the user without its password hash.
func (r *StoreRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, storage.SelectUserByID(id))
}

// Create inserts user and returns the new id. Duplicate email or phone is
// reported as common.ErrorConflict by the store and passed through as is.
func (r *StoreRepository) Create(ctx context.Context, user *models.User) (int64, error) {
	res, err := r.store.Query(ctx, storage.InsertUser(user))
	if err != nil {
		return 0, err
	}
	return res.InsertID, nil
}

func (r *StoreRepository) UpdateLastLogin(ctx context.Context, id int64) (bool, error) {
	return r.write(ctx, storage.UpdateLastLogin(id))
}

// Update changes the name and/or phone of a user. Other keys, and values of
// the wrong type, are ignored. With nothing left to change it returns false
// and the store is not touched.
func (r *StoreRepository) Update(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	var f storage.UserFields
	if v, ok := fields["name"].(string); ok {
		f.Name = &v
	}
	if v, ok := fields["phone"].(string); ok {
		f.Phone = &v
	}
	if f.Empty() {
		return false, nil
	}
	return r.write(ctx, storage.UpdateUser(id, f))
}

func (r *StoreRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.write(ctx, storage.DeleteUser(id))
}

// GetAll returns one page of users ordered by id, without password hashes.
// Pages are 1-based.
func (r *StoreRepository) GetAll(ctx context.Context, page, limit int) ([]models.User, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}

	res, err := r.store.Query(ctx, storage.SelectUsersPage(limit, (page-1)*limit))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (r *StoreRepository) findOne(ctx context.Context, op storage.Op) (*models.User, error) {
	res, err := r.store.Query(ctx, op)
	if err != nil {
		return nil, err
	}
	switch len(res.Rows) {
	case 0:
		return nil, common.ErrorNotFound
	case 1:
		u := res.Rows[0]
		return &u, nil
	default:
		return nil, fmt.Errorf("%w: %s matched %d rows", common.ErrorInternal, op.Kind, len(res.Rows))
	}
}

func (r *StoreRepository) write(ctx context.Context, op storage.Op) (bool, error) {
	res, err := r.store.Query(ctx, op)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}
