// Package importer defines the import pipeline shared by all institution
// importers: the intermediate record produced by format parsers, the
// instrument-to-account mapper, the balanced-transaction builder, and the
// deduplication filter.
//
// The pipeline is linear and stateless. A format parser turns a raw export
// into records, the builder groups related records into balanced
// transactions, and the dedup filter suppresses entries already imported in
// an earlier run. No stage retains state beyond the dedup key set, which the
// caller owns.
package importer

import (
	"context"
	"io"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
)

// Kind classifies an intermediate record by the real-world event it
// describes.
type Kind int

const (
	KindUnknown Kind = iota
	KindTrade
	KindDividend
	KindFee
	KindTax
	KindInterest
	KindTransfer
	KindDeposit
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTrade:
		return "trade"
	case KindDividend:
		return "dividend"
	case KindFee:
		return "fee"
	case KindTax:
		return "tax"
	case KindInterest:
		return "interest"
	case KindTransfer:
		return "transfer"
	case KindDeposit:
		return "deposit"
	default:
		return "unknown"
	}
}

// Record is the intermediate representation between a format parser and the
// entry builder: one row/element of a source export with its fields decoded.
// Records are immutable once parsed; parsing the same file twice yields an
// identical sequence.
type Record struct {
	Date        bean.Date
	Amount      decimal.Decimal
	Currency    string
	Description string
	// ExternalID is the source-provided transaction or trade id. Records
	// sharing an id belong to one real-world event (a trade and its
	// commission) and are combined into a single transaction.
	ExternalID string
	Kind       Kind
	// Instrument is the ISIN or symbol for records tied to a security.
	Instrument string
}

// Importer converts one institution's export files into ledger directives.
// The interface mirrors the identify/account/extract importer protocol:
// Identify decides from the filename whether the file belongs to this
// importer, Account names the account the importer books against, and
// Extract parses the file into directives.
type Importer interface {
	// Name is a short stable identifier, e.g. "revolut".
	Name() string

	// Identify reports whether the file belongs to this importer.
	Identify(filename string) bool

	// Account is the main account this importer books against.
	Account() bean.Account

	// Extract parses the file contents into ledger directives. It fails
	// with a *FormatError when the structure does not match the expected
	// schema; a failed file produces no directives (all-or-nothing).
	Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error)
}
