// Package bean provides the ledger data model produced by importers: dated
// directives (transactions and balance assertions) built from validated
// accounts, decimal amounts, and metadata, plus a renderer that writes them
// as aligned beancount text.
//
// The model is deliberately write-only. Importers construct directives with
// the builder functions in this package and hand them to a caller-supplied
// sink; nothing here reads a ledger back.
package bean

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Amount is a decimal value together with its currency or commodity symbol.
// Values render in decimal's canonical form, without trailing zeros.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// NewAmount creates an Amount from a decimal value and currency.
func NewAmount(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value, Currency: currency}
}

// ParseAmount creates an Amount from a decimal string and currency.
// Returns an error if the string is not a valid decimal.
func ParseAmount(value, currency string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount value %q: %w", value, err)
	}
	return Amount{Value: d, Currency: currency}, nil
}

// MustParseAmount is ParseAmount but panics on error. Use in tests.
func MustParseAmount(value, currency string) Amount {
	a, err := ParseAmount(value, currency)
	if err != nil {
		panic(err)
	}
	return a
}

// Neg returns the amount with its sign flipped.
func (a Amount) Neg() Amount {
	return Amount{Value: a.Value.Neg(), Currency: a.Currency}
}

// String renders the amount as "VALUE CURRENCY".
func (a Amount) String() string {
	return a.Value.String() + " " + a.Currency
}

// Account is a beancount account name: at least two colon-separated segments,
// the first of which must be one of the five account categories (Assets,
// Liabilities, Equity, Income, Expenses). Subsequent segments start with an
// uppercase letter or digit and may contain letters, digits, and hyphens.
//
// Example accounts:
//
//	Assets:Invest:IB:VT
//	Income:Dividends:IB:USD
//	Expenses:Fees:Revolut
type Account string

// accountSegmentRegex validates account segments after the first. Must start
// with an uppercase letter or digit; letters outside ASCII are accepted, as
// beancount itself accepts them ("Assets:Säule3a").
var accountSegmentRegex = regexp.MustCompile(`^[\p{Lu}\p{N}][\p{L}\p{N}-]*$`)

// NewAccount validates name and returns it as an Account.
func NewAccount(name string) (Account, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("account must have at least two segments: %s", name)
	}

	switch parts[0] {
	case "Assets", "Liabilities", "Equity", "Income", "Expenses":
	default:
		return "", fmt.Errorf("unexpected account type %q in %s", parts[0], name)
	}

	for i := 1; i < len(parts); i++ {
		if !accountSegmentRegex.MatchString(parts[i]) {
			return "", fmt.Errorf("invalid account segment at position %d: %s", i, name)
		}
	}

	return Account(name), nil
}

// MustAccount is NewAccount but panics on error. Use in tests and for
// compile-time-constant account names.
func MustAccount(name string) Account {
	a, err := NewAccount(name)
	if err != nil {
		panic(err)
	}
	return a
}

// Sub returns the account with extra segments appended. Empty segments are
// skipped, so deriving "Assets:Invest:IB" + alias + currency works whether
// or not an alias is present. Segments derived from free text (savings goal
// names, aliases) are sanitized into valid account segments.
func (a Account) Sub(segments ...string) Account {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, string(a))
	for _, s := range segments {
		if s = sanitizeSegment(s); s != "" {
			parts = append(parts, s)
		}
	}
	return Account(strings.Join(parts, ":"))
}

// sanitizeSegment makes s a valid account segment: runes outside
// letter/digit/hyphen become hyphens, leading hyphens are dropped, and the
// first rune is uppercased.
func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	out := strings.TrimLeft(b.String(), "-")
	if out == "" {
		return ""
	}
	r := []rune(out)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// ReplaceSegment returns the account with every segment equal to old swapped
// for repl. Used to derive sibling accounts, e.g. the cash account
// "Assets:Cash:IB" from the stock account "Assets:Stocks:IB".
func (a Account) ReplaceSegment(old, repl string) Account {
	parts := strings.Split(string(a), ":")
	for i, p := range parts {
		if p == old {
			parts[i] = repl
		}
	}
	return Account(strings.Join(parts, ":"))
}

// Date is a calendar date. Beancount has no notion of time of day, so the
// time portion is always truncated.
type Date struct {
	time.Time
}

// NewDate parses a date in ISO 8601 format (YYYY-MM-DD).
func NewDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date: %s", s)
	}
	return Date{Time: t}, nil
}

// MustDate is NewDate but panics on error. Use in tests.
func MustDate(s string) Date {
	d, err := NewDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDateFromTime truncates t to its date portion.
func NewDateFromTime(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// AddDays returns the date shifted by n days. Balance assertions are dated
// the day after the last covered booking, so n is usually 1.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String renders the date in ISO 8601 format.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Metadata is a key-value pair attached to a directive. Importers use
// metadata to carry external identifiers (for deduplication), ISINs,
// document links, and other provenance.
type Metadata struct {
	Key   string
	Value string
}

// Cost is the cost basis attached to a posting that acquires a commodity
// lot, rendered as "{PER_UNIT, DATE}". A nil PerUnit with a date renders the
// date alone; a fully empty cost renders "{}" (automatic lot selection).
type Cost struct {
	PerUnit *Amount
	Date    *Date
	Label   string
}

// Posting is one leg of a transaction: an account and an optional amount
// with optional cost and price annotations. A posting without an amount has
// its balance inferred by beancount (used for the PnL leg of sales).
type Posting struct {
	Account Account
	Amount  *Amount
	Cost    *Cost
	Price   *Amount
}

// Directive is a dated ledger entry. The two concrete kinds importers
// produce are *Transaction and *Balance.
type Directive interface {
	Date() Date
	directive() string
}

// Transaction is a balanced double-entry transaction. It is immutable once
// built; the dedup filter and renderer only read it.
type Transaction struct {
	TxnDate   Date
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Links     []string
	Metadata  []Metadata
	Postings  []Posting
}

func (t *Transaction) Date() Date        { return t.TxnDate }
func (t *Transaction) directive() string { return "txn" }

// Meta returns the value of the metadata entry with the given key, or "".
func (t *Transaction) Meta(key string) string {
	for _, m := range t.Metadata {
		if m.Key == key {
			return m.Value
		}
	}
	return ""
}

// Balance is a balance assertion: the statement that an account holds
// exactly the given amount at the start of the given date.
type Balance struct {
	AssertDate Date
	Account    Account
	Amount     Amount
	Metadata   []Metadata
}

func (b *Balance) Date() Date        { return b.AssertDate }
func (b *Balance) directive() string { return "balance" }

var (
	_ Directive = &Transaction{}
	_ Directive = &Balance{}
)
