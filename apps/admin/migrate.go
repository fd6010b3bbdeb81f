package main

import (
	"errors"

	"github.com/academia-labs/academia/storage/database"
)

var (
	gooseRunFunc = database.RunMigrations // mockable

	errNoDatabase = errors.New("migrations need a Postgres database")
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
