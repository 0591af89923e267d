/*
Command-line tool for backing up and restoring Steam data.

Usage:

	$ steamvault [<flags>] <subcommand> [<args> ...]

Use 'steamvault help' to see more details.
*/
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/steamvault/steamvault/cli"
	"github.com/steamvault/steamvault/internal/logfile"
)

func main() {
	app := kingpin.New("steamvault", "SteamVault - Steam data backup").Author("https://github.com/steamvault/steamvault")

	a := cli.NewApp()
	logfile.Attach(a, app)
	a.Attach(app)

	kingpin.MustParse(app.Parse(os.Args[1:]))
}
