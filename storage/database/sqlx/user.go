package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

type userRepository struct {
	exec executor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec executor) *userRepository {
	return &userRepository{exec: exec}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now
	}
	usr.UpdatedAt = now

	const q = `
		INSERT INTO "user" (id, name, username, email, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := getExec(repo.exec, exec).ExecContext(
		ctx, q,
		usr.ID, usr.Name, usr.Username, usr.Email, usr.IsActive, usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt,
	); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	const q = `SELECT * FROM "user" WHERE id = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &usr, q, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return usr, nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, uname string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	const q = `SELECT * FROM "user" WHERE username = $1 OR email = $1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &usr, q, uname); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return usr, nil
}

// PickRandomUser returns a uniformly random user other than excludedID.
// The unordered random scan is fine at this service's scale; revisit if
// the user table ever grows past a few tens of thousands of rows.
func (repo userRepository) PickRandomUser(ctx context.Context, excludedID string, exec ...core.DBExecutor) (user.User, error) {
	var usr user.User
	const q = `SELECT * FROM "user" WHERE id <> $1 ORDER BY random() LIMIT 1`
	if err := getExec(repo.exec, exec).GetContext(ctx, &usr, q, excludedID); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "picking random user")
	}
	return usr, nil
}
