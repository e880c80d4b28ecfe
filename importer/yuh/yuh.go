// Package yuh imports Yuh CSV account exports.
//
// Yuh exports are semicolon-separated with separate debit and credit columns
// and an activity type per row. Besides plain payments the export contains
// savings-goal movements, which book between the main account and a per-goal
// subaccount derived from the goal's name.
package yuh

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

// Config is the static configuration for the Yuh importer.
type Config struct {
	// Account is the main payment account, e.g. "Assets:Cash:Yuh:Pay:CHF".
	Account string `yaml:"account"`
	// GoalsAccount is the base account for savings goals; the goal name is
	// appended as a subaccount, e.g. "Assets:Cash:Yuh:Save" -> ":Taxes".
	GoalsAccount string `yaml:"goals_account"`
	// Counterpart is the default account for the second posting of regular
	// transactions.
	Counterpart string `yaml:"counterpart"`
	// Pattern matches filenames belonging to this importer. Defaults to
	// `yuh_.*\.csv`.
	Pattern string `yaml:"pattern"`
}

// Importer implements importer.Importer for Yuh CSV exports.
type Importer struct {
	account     bean.Account
	goals       bean.Account
	counterpart bean.Account
	pattern     *regexp.Regexp
}

// New validates the configuration and creates the importer.
func New(cfg Config) (*Importer, error) {
	account, err := bean.NewAccount(cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("yuh: invalid account: %w", err)
	}
	goals, err := bean.NewAccount(cfg.GoalsAccount)
	if err != nil {
		return nil, fmt.Errorf("yuh: invalid goals account: %w", err)
	}
	counterpart, err := bean.NewAccount(cfg.Counterpart)
	if err != nil {
		return nil, fmt.Errorf("yuh: invalid counterpart account: %w", err)
	}
	if cfg.Pattern == "" {
		cfg.Pattern = `yuh_.*\.csv`
	}
	pattern, err := regexp.Compile(`(?i)` + cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("yuh: invalid pattern: %w", err)
	}
	return &Importer{account: account, goals: goals, counterpart: counterpart, pattern: pattern}, nil
}

func (imp *Importer) Name() string { return "yuh" }

func (imp *Importer) Identify(filename string) bool {
	return imp.pattern.MatchString(filename)
}

func (imp *Importer) Account() bean.Account { return imp.account }

// row gives named access to one CSV record via the header.
type row struct {
	fields map[string]int
	values []string
}

func (r row) get(name string) string {
	i, ok := r.fields[name]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

func (imp *Importer) Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, importer.NewFormatError(filename, "cannot read header row", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	fields := make(map[string]int, len(header))
	for i, name := range header {
		fields[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"DATE", "ACTIVITY TYPE", "ACTIVITY NAME", "DEBIT", "CREDIT"} {
		if _, ok := fields[required]; !ok {
			return nil, importer.NewFormatErrorAt(filename, 1,
				fmt.Sprintf("missing column %q", required), nil)
		}
	}

	var directives []bean.Directive
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "malformed CSV row", err)
		}
		rec := row{fields: fields, values: values}

		activity := rec.get("ACTIVITY TYPE")
		if activity == "REWARD_RECEIVED" {
			continue
		}

		dateStr := rec.get("DATE")
		if dateStr == "" {
			return nil, importer.NewFormatErrorAt(filename, line, "empty date", nil)
		}
		t, err := time.Parse("02/01/2006", dateStr)
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid date", err)
		}
		date := bean.NewDateFromTime(t)

		if activity == "GOAL_DEPOSIT" || activity == "GOAL_WITHDRAWAL" {
			txn, err := imp.goalTransaction(filename, line, date, activity, rec)
			if err != nil {
				return nil, err
			}
			directives = append(directives, txn)
			continue
		}

		amount, currency, err := rowAmount(rec)
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid amount", err)
		}
		if currency == "" {
			// Rows without any amount carry no booking.
			continue
		}

		payee, narration := cleanPayee(activity, rec.get("ACTIVITY NAME"))
		amt := bean.NewAmount(amount, currency)
		directives = append(directives, bean.NewTransaction(date, narration,
			bean.WithPayee(payee),
			bean.WithPostings(
				bean.NewPosting(imp.account, bean.WithAmount(amt)),
				bean.NewPosting(imp.counterpart, bean.WithAmount(amt.Neg())),
			),
		))
	}
	return directives, nil
}

// goalTransaction books a savings-goal movement between the main account and
// the goal's subaccount.
func (imp *Importer) goalTransaction(filename string, line int, date bean.Date, activity string, rec row) (*bean.Transaction, error) {
	isDeposit := activity == "GOAL_DEPOSIT"

	var amount decimal.Decimal
	var currency string
	var err error
	if isDeposit {
		amount, err = decimal.NewFromString(rec.get("CREDIT"))
		currency = rec.get("CREDIT CURRENCY")
	} else {
		amount, err = decimal.NewFromString(rec.get("DEBIT"))
		currency = rec.get("DEBIT CURRENCY")
	}
	if err != nil {
		return nil, importer.NewFormatErrorAt(filename, line, "invalid goal amount", err)
	}
	amount = amount.Abs()

	goal := goalName(rec.get("ACTIVITY NAME"))
	if goal == "" {
		return nil, importer.NewFormatErrorAt(filename, line, "cannot derive goal name", nil)
	}
	goalAccount := imp.goals.Sub(goal)

	narration := "Withdrawal from " + goal
	sign := decimal.NewFromInt(-1)
	if isDeposit {
		narration = "Deposit to " + goal
		sign = decimal.NewFromInt(1)
	}

	return bean.NewTransaction(date, narration,
		bean.WithPayee("self"),
		bean.WithPostings(
			bean.NewPosting(imp.account,
				bean.WithAmount(bean.NewAmount(amount.Mul(sign).Neg(), currency))),
			bean.NewPosting(goalAccount,
				bean.WithAmount(bean.NewAmount(amount.Mul(sign), currency))),
		),
	), nil
}

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// goalName extracts the goal's name from an activity name like
// `Deposit to «Taxes (16%)»` and normalizes it into a valid account segment.
func goalName(name string) string {
	name = strings.Trim(name, `"`)
	for _, prefix := range []string{"Deposit to «", "Withdrawal from «"} {
		name = strings.ReplaceAll(name, prefix, "")
	}
	name = strings.ReplaceAll(name, "»", "")
	name = parenthetical.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		return ""
	}
	r := []rune(name)
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}

// rowAmount reads the debit or credit column, whichever is set.
func rowAmount(rec row) (decimal.Decimal, string, error) {
	if v := rec.get("DEBIT"); v != "" {
		d, err := decimal.NewFromString(v)
		return d, rec.get("DEBIT CURRENCY"), err
	}
	if v := rec.get("CREDIT"); v != "" {
		d, err := decimal.NewFromString(v)
		return d, rec.get("CREDIT CURRENCY"), err
	}
	return decimal.Zero, "", nil
}

// cleanPayee strips the transfer and Twint boilerplate Yuh puts into
// activity names.
func cleanPayee(activity, name string) (payee, narration string) {
	payee = strings.Trim(name, `"`)

	switch activity {
	case "PAYMENT_TRANSACTION_IN", "PAYMENT_TRANSACTION_OUT":
		for _, prefix := range []string{"Transfer from ", "Transfer to ", "Überweisung von ", "Überweisung an "} {
			payee = strings.ReplaceAll(payee, prefix, "")
		}
	case "CARD_TRANSACTION_IN", "CARD_TRANSACTION_OUT":
		if strings.HasPrefix(payee, "Twint an ") || strings.HasPrefix(payee, "Twint von ") {
			payee = strings.TrimPrefix(payee, "Twint an ")
			payee = strings.TrimPrefix(payee, "Twint von ")
			payee = titleCase(payee)
			narration = "Twint"
		}
	}
	return payee, narration
}

// titleCase uppercases the first letter of every space-separated word.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		words[i] = string(unicode.ToUpper(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
