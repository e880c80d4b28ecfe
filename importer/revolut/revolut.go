// Package revolut imports Revolut CSV account exports.
//
// The export is a comma-separated file with a fixed ten-column layout. Amount
// and balance columns may carry apostrophe thousands separators
// ("1'234.56"). Rows are parsed into intermediate records and fed through the
// shared transaction builder; the export carries no category information, so
// every record books against a single configured counterpart account. The
// balance after the newest row becomes a balance assertion dated one day
// later.
package revolut

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

// Config is the static configuration for the Revolut importer.
type Config struct {
	// Account is the Revolut cash account, e.g. "Assets:Cash:Revolut".
	Account string `yaml:"account"`
	// Counterpart is the default account for the second posting, e.g.
	// "Expenses:Uncategorized". Revolut exports carry no category
	// information, so every row books against it.
	Counterpart string `yaml:"counterpart"`
	// Currency is the currency of the account, used for the balance
	// assertion.
	Currency string `yaml:"currency"`
	// Pattern matches filenames belonging to this importer. Defaults to
	// `revolut_.*\.csv`.
	Pattern string `yaml:"pattern"`
}

// columns is the fixed layout of a Revolut account export.
var columns = []string{
	"Type", "Product", "Started Date", "Completed Date", "Description",
	"Amount", "Fee", "Currency", "State", "Balance",
}

// Importer implements importer.Importer for Revolut CSV exports.
type Importer struct {
	account  bean.Account
	currency string
	pattern  *regexp.Regexp
	builder  *importer.Builder
}

// New validates the configuration and creates the importer.
func New(cfg Config) (*Importer, error) {
	account, err := bean.NewAccount(cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("revolut: invalid account: %w", err)
	}
	counterpart, err := bean.NewAccount(cfg.Counterpart)
	if err != nil {
		return nil, fmt.Errorf("revolut: invalid counterpart account: %w", err)
	}
	if cfg.Currency == "" {
		return nil, fmt.Errorf("revolut: currency is required")
	}
	if cfg.Pattern == "" {
		cfg.Pattern = `revolut_.*\.csv`
	}
	pattern, err := regexp.Compile(`(?i)` + cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("revolut: invalid pattern: %w", err)
	}
	// Without category information every kind routes to the counterpart.
	builder, err := importer.NewBuilder(importer.BuilderConfig{
		Cash:           account,
		Fees:           counterpart,
		Dividends:      counterpart,
		WithholdingTax: counterpart,
		Interest:       counterpart,
		Deposits:       counterpart,
	})
	if err != nil {
		return nil, fmt.Errorf("revolut: %w", err)
	}
	return &Importer{
		account:  account,
		currency: cfg.Currency,
		pattern:  pattern,
		builder:  builder,
	}, nil
}

func (imp *Importer) Name() string { return "revolut" }

func (imp *Importer) Identify(filename string) bool {
	return imp.pattern.MatchString(filename)
}

func (imp *Importer) Account() bean.Account { return imp.account }

// Extract parses the export into one record per row, builds transactions,
// and appends a final balance assertion.
func (imp *Importer) Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, importer.NewFormatError(filename, "cannot read header row", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) != len(columns) {
		return nil, importer.NewFormatErrorAt(filename, 1,
			fmt.Sprintf("expected %d columns, got %d", len(columns), len(header)), nil)
	}

	var records []importer.Record
	var lastDate bean.Date
	var lastBalance decimal.Decimal

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "malformed CSV row", err)
		}

		date, err := parseDate(row[3])
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid completed date", err)
		}
		amount, err := parseNumber(row[5])
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid amount", err)
		}
		balance, err := parseNumber(row[9])
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid balance", err)
		}
		currency := strings.TrimSpace(row[7])
		if currency == "" {
			return nil, importer.NewFormatErrorAt(filename, line, "missing currency", nil)
		}

		records = append(records, importer.Record{
			Date:        date,
			Amount:      amount,
			Currency:    currency,
			Description: strings.TrimSpace(row[4]),
			Kind:        rowKind(row[0]),
		})

		lastDate = date
		lastBalance = balance
	}

	txns, err := imp.builder.Build(records)
	if err != nil {
		return nil, err
	}
	directives := make([]bean.Directive, 0, len(txns)+1)
	for _, txn := range txns {
		directives = append(directives, txn)
	}

	// The newest row's running balance asserts the account the day after.
	if len(directives) > 0 {
		directives = append(directives, bean.NewBalance(
			lastDate.AddDays(1), imp.account, bean.NewAmount(lastBalance, imp.currency)))
	}
	return directives, nil
}

// rowKind classifies the export's Type column. The distinction only shows in
// diagnostics; every kind books against the counterpart account.
func rowKind(typ string) importer.Kind {
	switch strings.ToUpper(strings.TrimSpace(typ)) {
	case "TOPUP":
		return importer.KindDeposit
	case "FEE":
		return importer.KindFee
	case "INTEREST":
		return importer.KindInterest
	default:
		return importer.KindTransfer
	}
}

// parseNumber decodes a Revolut number, tolerating apostrophe thousands
// separators.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "'", ""))
	return decimal.NewFromString(s)
}

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// parseDate accepts the datetime layouts Revolut has used across export
// versions.
func parseDate(s string) (bean.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return bean.NewDateFromTime(t), nil
		}
	}
	return bean.Date{}, fmt.Errorf("unrecognized date %q", s)
}
