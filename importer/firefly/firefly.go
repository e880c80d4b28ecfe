// Package firefly imports Firefly III CSV transaction exports.
//
// Firefly exports one CSV row per journal split; rows sharing a group_id
// belong to the same transaction. The importer merges a group's rows into
// one multi-posting transaction and joins their descriptions.
package firefly

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

// Config is the static configuration for the Firefly III importer.
type Config struct {
	// Account is the asset account the export belongs to.
	Account string `yaml:"account"`
	// Counterpart is the default account for the balancing posting of
	// single-row groups.
	Counterpart string `yaml:"counterpart"`
	// Pattern matches filenames belonging to this importer. Defaults to
	// `firefly.*\.csv`.
	Pattern string `yaml:"pattern"`
}

// Importer implements importer.Importer for Firefly III exports.
type Importer struct {
	account     bean.Account
	counterpart bean.Account
	pattern     *regexp.Regexp
}

// New validates the configuration and creates the importer.
func New(cfg Config) (*Importer, error) {
	account, err := bean.NewAccount(cfg.Account)
	if err != nil {
		return nil, fmt.Errorf("firefly: invalid account: %w", err)
	}
	counterpart, err := bean.NewAccount(cfg.Counterpart)
	if err != nil {
		return nil, fmt.Errorf("firefly: invalid counterpart account: %w", err)
	}
	if cfg.Pattern == "" {
		cfg.Pattern = `firefly.*\.csv`
	}
	pattern, err := regexp.Compile(`(?i)` + cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("firefly: invalid pattern: %w", err)
	}
	return &Importer{account: account, counterpart: counterpart, pattern: pattern}, nil
}

func (imp *Importer) Name() string { return "firefly" }

func (imp *Importer) Identify(filename string) bool {
	return imp.pattern.MatchString(filename)
}

func (imp *Importer) Account() bean.Account { return imp.account }

func (imp *Importer) Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, importer.NewFormatError(filename, "cannot read header row", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	fields := make(map[string]int, len(header))
	for i, name := range header {
		fields[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"group_id", "date", "amount", "currency_code", "description"} {
		if _, ok := fields[required]; !ok {
			return nil, importer.NewFormatErrorAt(filename, 1,
				fmt.Sprintf("missing column %q", required), nil)
		}
	}
	get := func(values []string, name string) string {
		i := fields[name]
		if i >= len(values) {
			return ""
		}
		return strings.TrimSpace(values[i])
	}

	// Rows sharing a group_id merge into one transaction; groups keep the
	// order of their first row.
	byGroup := make(map[string]*bean.Transaction)
	var order []string

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

		groupID := get(values, "group_id")
		if groupID == "" {
			return nil, importer.NewFormatErrorAt(filename, line, "missing group_id", nil)
		}
		// Firefly writes RFC 3339 timestamps; the date part is enough.
		dateStr := get(values, "date")
		if len(dateStr) > 10 {
			dateStr = dateStr[:10]
		}
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid date", err)
		}
		amount, err := decimal.NewFromString(get(values, "amount"))
		if err != nil {
			return nil, importer.NewFormatErrorAt(filename, line, "invalid amount", err)
		}
		currency := get(values, "currency_code")
		if currency == "" {
			return nil, importer.NewFormatErrorAt(filename, line, "missing currency_code", nil)
		}
		description := get(values, "description")
		amt := bean.NewAmount(amount, currency)

		if txn, ok := byGroup[groupID]; ok {
			// A later row of a known group contributes its own posting and
			// extends the narration.
			txn.Postings = append(txn.Postings, bean.NewPosting(imp.account, bean.WithAmount(amt)))
			if description != "" && !strings.Contains(txn.Narration, description) {
				txn.Narration = txn.Narration + " | " + description
			}
			continue
		}

		txn := bean.NewTransaction(bean.NewDateFromTime(t), description,
			bean.WithMeta(importer.MetaImportID, "firefly-"+groupID),
			bean.WithPostings(
				bean.NewPosting(imp.account, bean.WithAmount(amt)),
			),
		)
		byGroup[groupID] = txn
		order = append(order, groupID)
	}

	directives := make([]bean.Directive, 0, len(order))
	for _, groupID := range order {
		txn := byGroup[groupID]
		// Single-row groups get their balancing posting against the
		// default counterpart; multi-row groups balance among themselves
		// with a counterpart absorbing any remainder.
		if len(txn.Postings) == 1 {
			txn.Postings = append(txn.Postings,
				bean.NewPosting(imp.counterpart, bean.WithAmount(txn.Postings[0].Amount.Neg())))
		} else {
			txn.Postings = append(txn.Postings, bean.NewPosting(imp.counterpart))
		}
		directives = append(directives, txn)
	}
	return directives, nil
}
