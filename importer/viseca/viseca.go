// Package viseca imports Viseca credit-card JSON transaction exports.
//
// The export is the JSON payload of the card portal's transaction endpoint.
// Each transaction is categorized by the portal's pfm category; a static
// category map routes it to an expense account. Payments onto the card
// ("deposits") are skipped because they are already covered by the checking
// account's own statement.
package viseca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

// Config is the static configuration for the Viseca importer.
type Config struct {
	// Account is the credit-card liability account, e.g.
	// "Liabilities:CreditCard:Viseca".
	Account string `yaml:"account"`
	// Categories maps pfm category ids ("groceries", "travel") to expense
	// accounts. Unknown categories fall back to Fallback.
	Categories map[string]string `yaml:"categories"`
	// Fallback is the expense account for unmapped categories, e.g.
	// "Expenses:Unknown".
	Fallback string `yaml:"fallback"`
	// SplitAccount, when set, receives a share of every expense (household
	// splitting). The expense account gets the SplitRatio share, the split
	// account the remainder, so both postings sum to the original amount.
	SplitAccount string `yaml:"split_account"`
	// SplitRatio is the share booked on the expense account when splitting,
	// e.g. "0.5". Defaults to 0.5.
	SplitRatio string `yaml:"split_ratio"`
	// Pattern matches filenames belonging to this importer. Defaults to
	// `viseca.*\.json`.
	Pattern string `yaml:"pattern"`
}

// Importer implements importer.Importer for Viseca JSON exports.
type Importer struct {
	account      bean.Account
	categories   map[string]bean.Account
	fallback     bean.Account
	splitAccount bean.Account
	splitRatio   decimal.Decimal
	pattern      *regexp.Regexp
}

// New validates the configuration and creates the importer.
func New(cfg Config) (*Importer, error) {
	account, err := bean.NewAccount(cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("viseca: invalid account: %w", err)
	}
	fallback, err := bean.NewAccount(cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("viseca: invalid fallback account: %w", err)
	}

	categories := make(map[string]bean.Account, len(cfg.Categories))
	for category, name := range cfg.Categories {
		acct, err := bean.NewAccount(name)
		if err != nil {
			return nil, fmt.Errorf("viseca: category %q: %w", category, err)
		}
		categories[category] = acct
	}

	var splitAccount bean.Account
	splitRatio := decimal.NewFromFloat(0.5)
	if cfg.SplitAccount != "" {
		splitAccount, err = bean.NewAccount(cfg.SplitAccount)
		if err != nil {
			return nil, fmt.Errorf("viseca: invalid split account: %w", err)
		}
		if cfg.SplitRatio != "" {
			splitRatio, err = decimal.NewFromString(cfg.SplitRatio)
			if err != nil {
				return nil, fmt.Errorf("viseca: invalid split ratio: %w", err)
			}
		}
	}

	if cfg.Pattern == "" {
		cfg.Pattern = `viseca.*\.json`
	}
	pattern, err := regexp.Compile(`(?i)` + cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("viseca: invalid pattern: %w", err)
	}

	return &Importer{
		account:      account,
		categories:   categories,
		fallback:     fallback,
		splitAccount: splitAccount,
		splitRatio:   splitRatio,
		pattern:      pattern,
	}, nil
}

func (imp *Importer) Name() string { return "viseca" }

func (imp *Importer) Identify(filename string) bool {
	return imp.pattern.MatchString(filename)
}

func (imp *Importer) Account() bean.Account { return imp.account }

// export mirrors the JSON schema of the transactions endpoint.
type export struct {
	List []transaction `json:"list"`
}

type transaction struct {
	TransactionID    string      `json:"transactionId"`
	Date             string      `json:"date"`
	Amount           json.Number `json:"amount"`
	Currency         string      `json:"currency"`
	PrettyName       string      `json:"prettyName"`
	MerchantName     string      `json:"merchantName"`
	Details          string      `json:"details"`
	OriginalAmount   json.Number `json:"originalAmount"`
	OriginalCurrency string      `json:"originalCurrency"`
	PFMCategory      struct {
		ID string `json:"id"`
	} `json:"pfmCategory"`
}

func (imp *Importer) Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error) {
	var data export
	dec := json.NewDecoder(r)
	if err := dec.Decode(&data); err != nil {
		return nil, importer.NewFormatError(filename, "cannot decode JSON export", err)
	}

	var directives []bean.Directive
	for i, tx := range data.List {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tx.PFMCategory.ID == "deposits" {
			continue
		}

		t, err := parseDate(tx.Date)
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, i+1, "invalid date", err)
		}
		amount, err := decimal.NewFromString(tx.Amount.String())
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, i+1, "invalid amount", err)
		}
		currency := tx.Currency
		if currency == "" {
			currency = "CHF"
		}

		category := tx.PFMCategory.ID
		expense, ok := imp.categories[category]
		if !ok {
			expense = imp.fallback
		}

		payee := tx.PrettyName
		if payee == "" {
			payee = tx.MerchantName
		}
		if payee == "" {
			payee = "Unknown"
		}

		postings := []bean.Posting{
			bean.NewPosting(imp.account, bean.WithAmount(bean.NewAmount(amount.Neg(), currency))),
		}
		postings = append(postings, imp.expensePostings(expense, amount, currency)...)

		opts := []bean.TransactionOption{
			bean.WithPayee(payee),
			bean.WithMeta(importer.MetaImportID, tx.TransactionID),
			bean.WithMeta("category", category),
			bean.WithMeta("details", tx.Details),
			bean.WithPostings(postings...),
		}
		if tx.OriginalCurrency != "" && tx.OriginalCurrency != currency {
			opts = append(opts,
				bean.WithMeta("original-amount", tx.OriginalAmount.String()+" "+tx.OriginalCurrency))
		}

		directives = append(directives, bean.NewTransaction(t, "", opts...))
	}
	return directives, nil
}

// expensePostings books the expense side, split across two accounts when
// splitting is configured. The split share is quantized to three decimals
// and the remainder keeps the total exact.
func (imp *Importer) expensePostings(expense bean.Account, amount decimal.Decimal, currency string) []bean.Posting {
	if imp.splitAccount == "" {
		return []bean.Posting{
			bean.NewPosting(expense, bean.WithAmount(bean.NewAmount(amount, currency))),
		}
	}

	main := amount.Mul(imp.splitRatio).Round(3)
	rest := amount.Sub(main)
	return []bean.Posting{
		bean.NewPosting(expense, bean.WithAmount(bean.NewAmount(trimScale(main), currency))),
		bean.NewPosting(imp.splitAccount, bean.WithAmount(bean.NewAmount(trimScale(rest), currency))),
	}
}

// trimScale drops a trailing third decimal when it is zero, so clean halves
// render as "12.50" rather than "12.500".
func trimScale(d decimal.Decimal) decimal.Decimal {
	if d.Round(2).Equal(d) {
		return d.Round(2)
	}
	return d
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(s string) (bean.Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return bean.NewDateFromTime(t), nil
		}
	}
	return bean.Date{}, fmt.Errorf("unrecognized date %q", s)
}
