// Package prices fetches instrument prices for the ledger. Sources return
// the latest known price for a ticker; unavailable prices are a typed
// error so callers can distinguish "no price" from transport failures.
package prices

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
)

// Price is a quoted price for an instrument on a date.
type Price struct {
	Instrument string
	Date       bean.Date
	Value      decimal.Decimal
	Currency   string
}

func (p Price) String() string {
	return fmt.Sprintf("%s price %s %s %s", p.Date, p.Instrument, p.Value, p.Currency)
}

// Source provides prices for tickers.
type Source interface {
	// Name identifies the source in CLI output and errors.
	Name() string
	// LatestPrice returns the most recent price the source knows for the
	// ticker. It returns an *UnavailableError when the source has no
	// quote for the ticker.
	LatestPrice(ctx context.Context, ticker string) (*Price, error)
}

// UnavailableError reports that a source has no quote for a ticker. It is
// not a transport failure; the source was reachable and answered.
type UnavailableError struct {
	Source string
	Ticker string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: no price available for %s", e.Source, e.Ticker)
}
