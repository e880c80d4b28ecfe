package bean

// Constructor functions for building directives programmatically. Importers
// are the main consumer: they turn institution records into transactions
// without going through beancount text. Complex nodes use functional options.

// TransactionOption configures a Transaction under construction.
type TransactionOption func(*Transaction)

// NewTransaction creates a Transaction with the given date and narration.
// The flag defaults to "*" (cleared); override with WithFlag.
//
// Example:
//
//	txn := bean.NewTransaction(date, "Dividend VT",
//	    bean.WithPayee("VT"),
//	    bean.WithMeta("import-id", "T123"),
//	    bean.WithPostings(
//	        bean.NewPosting(income, bean.WithAmount(amt.Neg())),
//	        bean.NewPosting(cash, bean.WithAmount(amt)),
//	    ),
//	)
func NewTransaction(date Date, narration string, opts ...TransactionOption) *Transaction {
	txn := &Transaction{
		TxnDate:   date,
		Flag:      "*",
		Narration: narration,
	}
	for _, opt := range opts {
		opt(txn)
	}
	return txn
}

// WithFlag sets the transaction flag. Common values: "*" (cleared),
// "!" (pending review).
func WithFlag(flag string) TransactionOption {
	return func(t *Transaction) { t.Flag = flag }
}

// WithPayee sets the transaction payee.
func WithPayee(payee string) TransactionOption {
	return func(t *Transaction) { t.Payee = payee }
}

// WithTags appends tags to the transaction.
func WithTags(tags ...string) TransactionOption {
	return func(t *Transaction) { t.Tags = append(t.Tags, tags...) }
}

// WithLinks appends links to the transaction.
func WithLinks(links ...string) TransactionOption {
	return func(t *Transaction) { t.Links = append(t.Links, links...) }
}

// WithMeta appends a metadata entry. Entries with an empty value are
// dropped, which lets importers pass through optional source fields without
// checking each one.
func WithMeta(key, value string) TransactionOption {
	return func(t *Transaction) {
		if value == "" {
			return
		}
		t.Metadata = append(t.Metadata, Metadata{Key: key, Value: value})
	}
}

// WithPostings appends postings to the transaction.
func WithPostings(postings ...Posting) TransactionOption {
	return func(t *Transaction) { t.Postings = append(t.Postings, postings...) }
}

// PostingOption configures a Posting under construction.
type PostingOption func(*Posting)

// NewPosting creates a Posting against the given account. Without a
// WithAmount option the posting's amount is left for beancount to infer.
func NewPosting(account Account, opts ...PostingOption) Posting {
	p := Posting{Account: account}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// WithAmount sets the posting amount.
func WithAmount(amount Amount) PostingOption {
	return func(p *Posting) { p.Amount = &amount }
}

// WithCost sets the posting's cost basis.
func WithCost(cost Cost) PostingOption {
	return func(p *Posting) { p.Cost = &cost }
}

// WithPrice sets the posting's price annotation (@ AMOUNT).
func WithPrice(price Amount) PostingOption {
	return func(p *Posting) { p.Price = &price }
}

// NewBalance creates a balance assertion.
func NewBalance(date Date, account Account, amount Amount) *Balance {
	return &Balance{AssertDate: date, Account: account, Amount: amount}
}
