package importer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
)

// MetaImportID is the metadata key carrying the source-provided external id.
// The dedup filter keys on it when present.
const MetaImportID = "import-id"

// BuilderConfig binds the target accounts for each record kind. Every
// account present is validated at construction time. Accounts left empty are
// allowed, but building a record of the corresponding kind then fails, so a
// missing binding surfaces on first use instead of silently misrouting.
type BuilderConfig struct {
	// Cash is the liquidity account all record amounts flow through.
	Cash bean.Account
	// Fees receives the counter posting of fee and orphan commission
	// records.
	Fees bean.Account
	// Dividends receives dividend income counter postings.
	Dividends bean.Account
	// WithholdingTax receives tax counter postings.
	WithholdingTax bean.Account
	// Interest receives interest counter postings, paid and received.
	Interest bean.Account
	// Deposits is the counter account for transfers in and out.
	Deposits bean.Account
	// Rounding receives the residual posting when a transaction's postings
	// do not sum to zero within Epsilon. Defaults to "Expenses:Rounding".
	Rounding bean.Account
	// Instruments resolves the instrument of trade and dividend records to
	// its position account.
	Instruments *InstrumentMap
	// Epsilon is the per-currency balancing tolerance. Defaults to 1e-6.
	// Multi-currency conversions always carry rounding noise, so a residual
	// beyond epsilon is booked against Rounding rather than rejected.
	Epsilon decimal.Decimal
}

// Builder combines related intermediate records into balanced transactions.
// Records sharing an external id form one transaction (a trade plus its
// commission and tax lines); records without an id become standalone
// transactions.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder validates the configuration and creates a Builder.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.Cash == "" {
		return nil, fmt.Errorf("builder config: cash account is required")
	}
	for name, account := range map[string]bean.Account{
		"cash":            cfg.Cash,
		"fees":            cfg.Fees,
		"dividends":       cfg.Dividends,
		"withholding tax": cfg.WithholdingTax,
		"interest":        cfg.Interest,
		"deposits":        cfg.Deposits,
		"rounding":        cfg.Rounding,
	} {
		if account == "" {
			continue
		}
		if _, err := bean.NewAccount(string(account)); err != nil {
			return nil, fmt.Errorf("builder config: invalid %s account: %w", name, err)
		}
	}
	if cfg.Rounding == "" {
		cfg.Rounding = "Expenses:Rounding"
	}
	if cfg.Epsilon.IsZero() {
		cfg.Epsilon = decimal.New(1, -6)
	}
	return &Builder{cfg: cfg}, nil
}

// Build turns records into transactions, one per external id group, in
// source order. Mapping failures abort the whole build: a partially imported
// file is worse than no import.
func (b *Builder) Build(records []Record) ([]*bean.Transaction, error) {
	groups := groupRecords(records)

	txns := make([]*bean.Transaction, 0, len(groups))
	for _, group := range groups {
		txn, err := b.buildGroup(group)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// groupRecords partitions records by external id, preserving the order in
// which each id first appears. Records without an id stay alone.
func groupRecords(records []Record) [][]Record {
	var groups [][]Record
	index := make(map[string]int)

	for _, r := range records {
		if r.ExternalID == "" {
			groups = append(groups, []Record{r})
			continue
		}
		if i, ok := index[r.ExternalID]; ok {
			groups[i] = append(groups[i], r)
			continue
		}
		index[r.ExternalID] = len(groups)
		groups = append(groups, []Record{r})
	}
	return groups
}

func (b *Builder) buildGroup(group []Record) (*bean.Transaction, error) {
	primary := primaryRecord(group)

	var postings []bean.Posting
	cash := newCurrencySums()

	payee := ""
	for _, r := range group {
		account, err := b.counterAccount(r)
		if err != nil {
			return nil, err
		}
		postings = append(postings, bean.NewPosting(account,
			bean.WithAmount(bean.NewAmount(r.Amount.Neg(), r.Currency))))
		cash.add(r.Currency, r.Amount)

		if payee == "" && r.Instrument != "" && b.cfg.Instruments != nil {
			if inst, err := b.cfg.Instruments.Lookup(r.Instrument); err == nil {
				payee = inst.Symbol
			}
		}
	}

	// One cash posting per currency, after the counter postings.
	for _, cs := range cash.ordered() {
		postings = append(postings, bean.NewPosting(b.cfg.Cash,
			bean.WithAmount(bean.NewAmount(cs.sum, cs.currency))))
	}

	postings = b.balance(postings)

	opts := []bean.TransactionOption{
		bean.WithPostings(postings...),
		bean.WithMeta(MetaImportID, primary.ExternalID),
	}
	if payee != "" {
		opts = append(opts, bean.WithPayee(payee))
	}
	return bean.NewTransaction(primary.Date, primary.Description, opts...), nil
}

// primaryRecord picks the record that names the group: the first trade if
// one exists (its description carries the most context), else the first
// record.
func primaryRecord(group []Record) Record {
	for _, r := range group {
		if r.Kind == KindTrade {
			return r
		}
	}
	return group[0]
}

func (b *Builder) counterAccount(r Record) (bean.Account, error) {
	switch r.Kind {
	case KindTrade:
		if b.cfg.Instruments == nil {
			return "", fmt.Errorf("trade record %q: no instrument map configured", r.Description)
		}
		inst, err := b.cfg.Instruments.Lookup(r.Instrument)
		if err != nil {
			return "", err
		}
		if inst.Account == "" {
			return "", fmt.Errorf("trade record %q: instrument %q has no account binding", r.Description, r.Instrument)
		}
		return inst.Account, nil
	case KindDividend:
		return b.requireAccount(b.cfg.Dividends, "dividends", r)
	case KindFee:
		return b.requireAccount(b.cfg.Fees, "fees", r)
	case KindTax:
		return b.requireAccount(b.cfg.WithholdingTax, "withholding tax", r)
	case KindInterest:
		return b.requireAccount(b.cfg.Interest, "interest", r)
	case KindTransfer, KindDeposit:
		return b.requireAccount(b.cfg.Deposits, "deposits", r)
	default:
		return b.requireAccount(b.cfg.Fees, "fees", r)
	}
}

func (b *Builder) requireAccount(account bean.Account, name string, r Record) (bean.Account, error) {
	if account == "" {
		return "", fmt.Errorf("%s record %q: no %s account configured", r.Kind, r.Description, name)
	}
	return account, nil
}

// balance checks the per-currency net of the postings and appends a residual
// posting against the rounding account for every currency whose net exceeds
// epsilon. Nets within epsilon are left alone; beancount's own tolerance
// absorbs them.
func (b *Builder) balance(postings []bean.Posting) []bean.Posting {
	net := newCurrencySums()
	for _, p := range postings {
		if p.Amount == nil {
			// An elided amount absorbs the remainder, nothing to correct.
			return postings
		}
		net.add(p.Amount.Currency, p.Amount.Value)
	}

	for _, cs := range net.ordered() {
		if cs.sum.Abs().GreaterThan(b.cfg.Epsilon) {
			postings = append(postings, bean.NewPosting(b.cfg.Rounding,
				bean.WithAmount(bean.NewAmount(cs.sum.Neg(), cs.currency))))
		}
	}
	return postings
}

// currencySums accumulates amounts per currency while remembering the order
// currencies first appeared, so output is deterministic.
type currencySums struct {
	sums  map[string]decimal.Decimal
	order []string
}

type currencySum struct {
	currency string
	sum      decimal.Decimal
}

func newCurrencySums() *currencySums {
	return &currencySums{sums: make(map[string]decimal.Decimal)}
}

func (c *currencySums) add(currency string, amount decimal.Decimal) {
	if _, ok := c.sums[currency]; !ok {
		c.order = append(c.order, currency)
	}
	c.sums[currency] = c.sums[currency].Add(amount)
}

func (c *currencySums) ordered() []currencySum {
	out := make([]currencySum, 0, len(c.order))
	for _, cur := range c.order {
		out = append(out, currencySum{currency: cur, sum: c.sums[cur]})
	}
	return out
}
