package dummydb

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	for _, u := range repo.db.data.users {
		if strings.EqualFold(u.Username, usr.Username) || strings.EqualFold(u.Email, usr.Email) {
			return usr, user.ErrExists
		}
	}
	usr.ID = uuid.New().String()
	usr.CreatedAt = time.Now().UTC()
	usr.UpdatedAt = usr.CreatedAt
	u := usr
	repo.db.data.users[usr.ID] = &u
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	if usr, ok := repo.db.data.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByUsernameOrEmail(_ context.Context, usernameOrEmail string, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	for _, usr := range repo.db.data.users {
		if strings.EqualFold(usr.Username, usernameOrEmail) || strings.EqualFold(usr.Email, usernameOrEmail) {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) PickRandomUser(_ context.Context, excludedID string, exec ...core.DBExecutor) (user.User, error) {
	defer repo.db.lock(exec)()

	candidates := make([]*user.User, 0, len(repo.db.data.users))
	for id, usr := range repo.db.data.users {
		if id == excludedID {
			continue
		}
		candidates = append(candidates, usr)
	}
	if len(candidates) == 0 {
		return user.User{}, user.ErrNotFound
	}
	return *candidates[rand.Intn(len(candidates))], nil
}
