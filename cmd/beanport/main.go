package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/mekanics/beanport/cli"
)

var (
	// Version contains the application version number. It's set via ldflags
	// when building.
	Version = ""

	// CommitSHA contains the SHA of the commit that this application was built
	// against. It's set via ldflags when building.
	CommitSHA = ""

	flags struct {
		Version kong.VersionFlag `help:"Show version information"`
		cli.Commands
	}
)

func main() {
	// A .env next to the working directory may hold IBKR_TOKEN and
	// IBKR_QUERY_ID; absence is fine.
	_ = godotenv.Load()

	cli.Version = Version
	cli.CommitSHA = CommitSHA

	ctx := kong.Parse(&flags,
		kong.Vars{
			"version": buildVersion(),
		},
		kong.Name("beanport"),
		kong.Description("Import bank and broker exports into a beancount ledger."),
		kong.UsageOnError(),
		kong.Bind(&flags.Globals),
	)

	err := ctx.Run()
	var cmdErr *cli.CommandError
	if errors.As(err, &cmdErr) {
		// Command output already went to stderr; just carry the code.
		os.Exit(cmdErr.ExitCode())
	}
	ctx.FatalIfErrorf(err)
}

func buildVersion() string {
	if Version == "" {
		Version = "dev"
	}
	if CommitSHA == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, CommitSHA)
}
