package main

import (
	"context"
	"fmt"
)

// addUser updates or creates the user with email.
func (cli *commandLine) addUser(email, name, role, pwd string) error {
	usr, err := cli.usrSvc.SaveAccount(context.Background(), email, name, role, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s %q (id %d)\n", usr.Role, usr.Email, usr.ID)
	return nil
}
