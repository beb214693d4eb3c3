package main

import (
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/mafunzo/fs"
)

var gooseRunFunc = goose.RunFS // mockable

// migrate dispatches a goose command against the embedded migrations.
// args[0] is the goose subcommand, the rest are its arguments.
func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, appfs.FS, "migrations", args[1:]...)
}
