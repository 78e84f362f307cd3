package user

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Chrouos/tomato-website-sub000/core"
)

var (
	// errors
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("a user with this username or email already exists")
)

type (
	User struct {
		ID           string    `json:"id" db:"id"`
		Name         string    `json:"name" db:"name"`
		Username     string    `json:"username" db:"username"`
		Email        string    `json:"email" db:"email"`
		IsActive     bool      `json:"is_active" db:"is_active"`
		PasswordHash []byte    `json:"-" db:"password_hash"`
		CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
		UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	}

	// Repository exposes the few user lookups the core needs. Account
	// management itself lives in a separate app and is not part of this
	// service.
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, uname string, exec ...core.DBExecutor) (User, error)
		// PickRandomUser returns a user chosen uniformly at random among
		// all users other than excludedID; ErrNotFound if there is none.
		PickRandomUser(ctx context.Context, excludedID string, exec ...core.DBExecutor) (User, error)
	}
)

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

func (nu *NewUser) Validate() error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return core.Validate.Struct(nu)
}
