package main

import (
	"context"

	"github.com/Chrouos/tomato-website-sub000/core"
	"github.com/Chrouos/tomato-website-sub000/core/user"
)

// addUser creates a user.User with a bcrypt-hashed password.
func (cli *commandLine) addUser(uname, email, pwd string) error {
	ctx := context.Background()

	usr := user.User{
		Username: core.CleanString(uname, true /* lower */),
		Email:    core.CleanString(email, true /* lower */),
		IsActive: true,
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.CreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
