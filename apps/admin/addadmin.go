package main

import (
	"context"
	"time"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/account"
)

// addAdmin creates an admin account, or promotes an existing account to admin
// with a fresh password.
func (cli *commandLine) addAdmin(firstName, lastName, email, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email)
	now := time.Now().UTC()

	acct, err := cli.acctRepo.GetAccount(ctx, account.GetFilter{Email: email})
	if err != nil {
		if err != account.ErrNotFound {
			return err
		}
		acct = account.Account{
			FirstName: core.CleanString(firstName),
			LastName:  core.CleanString(lastName),
			Email:     email,
			CreatedAt: now,
		}
	}
	acct.Role = account.RoleAdmin
	acct.SetActive(true)
	if err := acct.SetPassword(pwd); err != nil {
		return err
	}
	acct.UpdatedAt = now

	if acct.ID == "" {
		_, err = cli.acctRepo.CreateAccount(ctx, acct)
	} else {
		_, err = cli.acctRepo.UpdateAccount(ctx, acct)
	}
	return err
}
