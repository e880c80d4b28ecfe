package cli

var (
	Version   = ""
	CommitSHA = ""
)

// Globals defines global flags available to all commands.
type Globals struct {
	Config    string `help:"Path to the beanport configuration file." default:"beanport.yaml" type:"path"`
	Telemetry bool   `help:"Show timing telemetry for operations."`
}

type Commands struct {
	Globals

	Extract  ExtractCmd  `cmd:"" help:"Extract ledger entries from bank and broker export files."`
	Identify IdentifyCmd `cmd:"" help:"Show which importer claims each file."`
	Price    PriceCmd    `cmd:"" help:"Fetch latest instrument prices and print price directives."`
}
