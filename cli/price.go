package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/mekanics/beanport/importer/ibkr"
	"github.com/mekanics/beanport/prices"
)

// PriceCmd fetches the latest price for each ticker and prints beancount
// price directives. A ticker the source has no quote for is reported but
// does not abort the remaining tickers.
type PriceCmd struct {
	Tickers []string `help:"Commodity tickers to fetch." arg:""`
}

func (cmd *PriceCmd) Run(ctx *kong.Context, globals *Globals) error {
	cfg, _, err := LoadConfig(globals.Config)
	if err != nil {
		return err
	}

	source, err := priceSource(cfg)
	if err != nil {
		return err
	}

	runCtx := context.Background()

	unavailable := 0
	for _, ticker := range cmd.Tickers {
		price, err := source.LatestPrice(runCtx, ticker)
		if err != nil {
			var unavailErr *prices.UnavailableError
			if errors.As(err, &unavailErr) {
				printError(ctx.Stderr, unavailErr.Error())
				unavailable++
				continue
			}
			return err
		}
		_, _ = fmt.Fprintf(ctx.Stdout, "%s price %s %s %s\n",
			price.Date, price.Instrument, price.Value, price.Currency)
	}

	if unavailable > 0 {
		return NewCommandError(1)
	}
	return nil
}

// priceSource builds the IBKR price source. IBKR_TOKEN and IBKR_QUERY_ID
// in the environment take precedence over the configured credentials file.
func priceSource(cfg *Config) (prices.Source, error) {
	token := os.Getenv("IBKR_TOKEN")
	queryID := os.Getenv("IBKR_QUERY_ID")
	if token != "" && queryID != "" {
		return prices.NewIBKRSource(ibkr.Credentials{Token: token, QueryID: queryID}), nil
	}

	path := cfg.Prices.IBKR.CredentialsFile
	if path == "" {
		return nil, fmt.Errorf("no price source configured: set prices.ibkr.credentials_file or IBKR_TOKEN/IBKR_QUERY_ID")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read credentials: %w", err)
	}
	defer func() { _ = f.Close() }()

	creds, err := ibkr.ParseCredentials(f)
	if err != nil {
		return nil, err
	}
	return prices.NewIBKRSource(*creds), nil
}
