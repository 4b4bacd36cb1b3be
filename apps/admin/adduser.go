package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/simcatalog/core"
	"github.com/trezcool/simcatalog/core/user"
)

var errUnknownRole = errors.New("role must be one of VIEWER, EDITOR or ADMIN")

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	r, ok := user.ParseRole(role)
	if !ok {
		return errUnknownRole
	}
	if err := user.CheckPasswordPolicy(pwd, name, email); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	created := false
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{ID: uuid.NewString(), Email: email, CreatedAt: now}
		created = true
	}
	usr.Name = name
	usr.Role = r
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}

	if created {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s (%s) saved\n", usr.Email, usr.Role)
	return nil
}
