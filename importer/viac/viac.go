// Package viac imports Viac JSON transaction exports.
//
// The export is the JSON payload of the portfolio app's transactions
// endpoint: a map of account keys to transaction lists. The pillar (S2 /
// S3a) and portfolio are encoded in the filename and substituted into the
// configured root account; pillar-2 keys additionally distinguish the
// mandatory part (".O") from the extra-mandatory part (".U"). Transfer
// accounts (keys ending in D1/D2) are skipped.
//
// All Viac bookings are in CHF. Trades report only their cash effect, so
// position postings carry a zero quantity with an empty cost and are flagged
// "!" for manual completion from the trade document.
package viac

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

const currency = "CHF"

// Share is one entry of the share lookup table.
type Share struct {
	Symbol string `yaml:"symbol"`
	ISIN   string `yaml:"isin"`
}

// Config is the static configuration for the Viac importer.
type Config struct {
	// RootAccount is the account template the pillar and portfolio from
	// the filename are substituted into, e.g.
	// "Assets:Vorsorge:S3a:Viac:Portfolio1".
	RootAccount string `yaml:"root_account"`
	// DepositAccount is the counter account for contributions. Leave empty
	// to suppress deposit transactions (they are usually covered by the
	// checking account's own statement).
	DepositAccount string `yaml:"deposit_account"`
	// Shares maps the fund names Viac uses in descriptions to their symbol
	// and ISIN. A trade or dividend whose description is missing here is a
	// hard error.
	Shares map[string]Share `yaml:"shares"`
	// DivSuffix is the final segment of dividend income accounts.
	// Defaults to "Div".
	DivSuffix string `yaml:"div_suffix"`
	// InterestSuffix is the segment for interest income accounts.
	// Defaults to "Interest".
	InterestSuffix string `yaml:"interest_suffix"`
	// FeesSuffix is the segment for fee expense accounts. Defaults to
	// "Fees".
	FeesSuffix string `yaml:"fees_suffix"`
	// Pattern matches filenames belonging to this importer and captures
	// pillar and portfolio.
	Pattern string `yaml:"pattern"`
}

// Importer implements importer.Importer for Viac JSON exports.
type Importer struct {
	root           bean.Account
	depositAccount bean.Account
	instruments    *importer.InstrumentMap
	divSuffix      string
	interestSuffix string
	feesSuffix     string
	pattern        *regexp.Regexp
}

var pillarSegment = regexp.MustCompile(`^S[23]a?$`)
var portfolioSegment = regexp.MustCompile(`^(Portfolio\d|Freizuegigkeit|Ueberobligatorium)$`)

// New validates the configuration and creates the importer.
func New(cfg Config) (*Importer, error) {
	root, err := bean.NewAccount(cfg.RootAccount)
	if err != nil {
		return nil, fmt.Errorf("viac: invalid root account: %w", err)
	}
	var deposit bean.Account
	if cfg.DepositAccount != "" {
		deposit, err = bean.NewAccount(cfg.DepositAccount)
		if err != nil {
			return nil, fmt.Errorf("viac: invalid deposit account: %w", err)
		}
	}
	// Position accounts derive from the filename, so the entries carry no
	// account binding.
	entries := make(map[string]importer.Instrument, len(cfg.Shares))
	for name, share := range cfg.Shares {
		entries[name] = importer.Instrument{Symbol: share.Symbol, ISIN: share.ISIN}
	}
	instruments, err := importer.NewInstrumentMap(entries)
	if err != nil {
		return nil, fmt.Errorf("viac: %w", err)
	}
	if cfg.DivSuffix == "" {
		cfg.DivSuffix = "Div"
	}
	if cfg.InterestSuffix == "" {
		cfg.InterestSuffix = "Interest"
	}
	if cfg.FeesSuffix == "" {
		cfg.FeesSuffix = "Fees"
	}
	if cfg.Pattern == "" {
		cfg.Pattern = `viac_(S[23]a?)_(Portfolio\d|Freizuegigkeit|Ueberobligatorium|transactions)`
	}
	pattern, err := regexp.Compile(`(?i)` + cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("viac: invalid pattern: %w", err)
	}
	return &Importer{
		root:           root,
		depositAccount: deposit,
		instruments:    instruments,
		divSuffix:      cfg.DivSuffix,
		interestSuffix: cfg.InterestSuffix,
		feesSuffix:     cfg.FeesSuffix,
		pattern:        pattern,
	}, nil
}

func (imp *Importer) Name() string { return "viac" }

func (imp *Importer) Identify(filename string) bool {
	return imp.pattern.MatchString(filename)
}

func (imp *Importer) Account() bean.Account { return imp.root }

// mainAccount substitutes the pillar and portfolio from the filename into
// the root account.
func (imp *Importer) mainAccount(filename string) (bean.Account, error) {
	m := imp.pattern.FindStringSubmatch(filename)
	if m == nil || len(m) < 3 {
		return "", fmt.Errorf("cannot extract pillar and portfolio from filename %q", filename)
	}
	pillar, portfolio := m[1], m[2]
	if pillar == "S2" {
		portfolio = "Freizuegigkeit"
	}

	parts := strings.Split(string(imp.root), ":")
	for i, p := range parts {
		if pillarSegment.MatchString(p) {
			parts[i] = pillar
		}
		if portfolioSegment.MatchString(p) && portfolio != "transactions" {
			parts[i] = portfolio
		}
	}
	return bean.Account(strings.Join(parts, ":")), nil
}

// export mirrors the JSON schema of the transactions endpoint.
type export struct {
	Transactions map[string][]transaction `json:"transactions"`
}

type transaction struct {
	Type                string      `json:"type"`
	ValueDate           string      `json:"valueDate"`
	AmountInCHF         json.Number `json:"amountInChf"`
	BalanceAfterBooking json.Number `json:"balanceAfterBooking"`
	Description         string      `json:"description"`
	DocumentNumber      string      `json:"documentNumber"`
}

func (imp *Importer) Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error) {
	main, err := imp.mainAccount(filename)
	if err != nil {
		return nil, importer.NewFormatError(filename, "unexpected filename", err)
	}

	var data export
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, importer.NewFormatError(filename, "cannot decode JSON export", err)
	}

	// Deterministic account-key order; the JSON map has none.
	keys := make([]string, 0, len(data.Transactions))
	for key := range data.Transactions {
		if strings.HasSuffix(key, "D1") || strings.HasSuffix(key, "D2") {
			// Transfer accounts carry no bookings of interest.
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var directives []bean.Directive
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		account := accountForKey(main, key)
		ds, err := imp.extractAccount(filename, account, key, data.Transactions[key])
		if err != nil {
			return nil, err
		}
		directives = append(directives, ds...)
	}
	return directives, nil
}

// accountForKey adjusts the pillar-2 account for the extra-mandatory part.
func accountForKey(main bean.Account, key string) bean.Account {
	if strings.HasSuffix(key, ".U") {
		return main.ReplaceSegment("Freizuegigkeit", "Ueberobligatorium")
	}
	return main
}

func (imp *Importer) extractAccount(filename string, main bean.Account, key string, txs []transaction) ([]bean.Directive, error) {
	liquidity := main.Sub(currency)

	var directives []bean.Directive
	var lastDate bean.Date
	var lastBalance decimal.Decimal

	for i, tx := range txs {
		date, err := bean.NewDate(tx.ValueDate[:min(len(tx.ValueDate), 10)])
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, i+1, "invalid value date", err)
		}
		amount, err := decimal.NewFromString(tx.AmountInCHF.String())
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, i+1, "invalid amount", err)
		}
		amount = amount.Round(4)

		var txn *bean.Transaction
		switch tx.Type {
		case "INTEREST":
			txn = imp.twoLegged(date, "Viac", "Interest", tx, key,
				imp.interestAccount(main), liquidity, amount)
		case "FEE_CHARGE":
			txn = imp.twoLegged(date, "Viac", "Fees", tx, key,
				imp.feesAccount(main), liquidity, amount)
		case "CONTRIBUTION":
			if imp.depositAccount == "" {
				break
			}
			txn = imp.twoLegged(date, "self", "deposit / withdrawal", tx, key,
				imp.depositAccount, liquidity, amount)
			txn.Tags = append(txn.Tags, "viac-deposit")
		case "TRADE_BUY", "TRADE_SELL":
			txn, err = imp.trade(date, tx, key, main, liquidity, amount)
		case "DIVIDEND", "DIVIDEND_CANCELLATION":
			txn, err = imp.dividend(date, tx, key, main, liquidity, amount)
		}
		if err != nil {
			return nil, err
		}
		if txn != nil {
			directives = append(directives, txn)
		}

		if balance, berr := decimal.NewFromString(tx.BalanceAfterBooking.String()); berr == nil {
			// Strictly later only: of several bookings on the newest day
			// the first one carries the asserted balance.
			if lastDate.IsZero() || date.After(lastDate.Time) {
				lastDate = date
				lastBalance = balance.Round(3)
			}
		}
	}

	if !lastDate.IsZero() {
		directives = append(directives, bean.NewBalance(
			lastDate.AddDays(1), liquidity, bean.NewAmount(lastBalance, currency)))
	}
	return directives, nil
}

// twoLegged books amount on the liquidity account against a counter account.
func (imp *Importer) twoLegged(date bean.Date, payee, narration string, tx transaction, key string, counter, liquidity bean.Account, amount decimal.Decimal) *bean.Transaction {
	return bean.NewTransaction(date, narration,
		bean.WithPayee(payee),
		bean.WithMeta("source-account", key),
		bean.WithMeta("document", documentURL(tx.DocumentNumber)),
		bean.WithPostings(
			bean.NewPosting(counter, bean.WithAmount(bean.NewAmount(amount.Neg(), currency))),
			bean.NewPosting(liquidity, bean.WithAmount(bean.NewAmount(amount, currency))),
		),
	)
}

func (imp *Importer) trade(date bean.Date, tx transaction, key string, main, liquidity bean.Account, amount decimal.Decimal) (*bean.Transaction, error) {
	share, err := imp.instruments.Lookup(tx.Description)
	if err != nil {
		return nil, err
	}

	side := "BUY"
	if amount.IsPositive() {
		side = "SELL"
	}
	// Quantity and price are not part of the export; the position posting
	// is a zero-quantity placeholder to be completed from the document.
	return bean.NewTransaction(date, fmt.Sprintf("%s %s; %s", side, share.Symbol, tx.Description),
		bean.WithFlag("!"),
		bean.WithPayee(share.ISIN),
		bean.WithMeta("source-account", key),
		bean.WithMeta("document", documentURL(tx.DocumentNumber)),
		bean.WithPostings(
			bean.NewPosting(main.Sub(share.Symbol),
				bean.WithAmount(bean.NewAmount(decimal.Zero, share.Symbol)),
				bean.WithCost(bean.Cost{})),
			bean.NewPosting(liquidity, bean.WithAmount(bean.NewAmount(amount, currency))),
		),
	), nil
}

func (imp *Importer) dividend(date bean.Date, tx transaction, key string, main, liquidity bean.Account, amount decimal.Decimal) (*bean.Transaction, error) {
	share, err := imp.instruments.Lookup(tx.Description)
	if err != nil {
		return nil, err
	}

	income := bean.Account(strings.Replace(string(main), "Assets", "Income", 1)).
		Sub(share.Symbol, imp.divSuffix)
	return bean.NewTransaction(date, fmt.Sprintf("Dividend %s; %s", share.Symbol, tx.Description),
		bean.WithPayee(share.ISIN),
		bean.WithMeta("isin", share.ISIN),
		bean.WithMeta("source-account", key),
		bean.WithPostings(
			bean.NewPosting(income, bean.WithAmount(bean.NewAmount(amount.Neg(), currency))),
			bean.NewPosting(liquidity, bean.WithAmount(bean.NewAmount(amount, currency))),
		),
	), nil
}

func (imp *Importer) interestAccount(main bean.Account) bean.Account {
	return bean.Account(strings.Replace(string(main), "Assets", "Income", 1)).
		Sub(imp.interestSuffix, currency)
}

func (imp *Importer) feesAccount(main bean.Account) bean.Account {
	return bean.Account(strings.Replace(string(main), "Assets", "Expenses", 1)).
		Sub(imp.feesSuffix, currency)
}

func documentURL(document string) string {
	if document == "" {
		return ""
	}
	return fmt.Sprintf("https://app.viac.ch/files/document/%s/content/%s.pdf", document, document)
}
