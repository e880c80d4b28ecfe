package viac

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

func testImporter(t *testing.T, cfg Config) *Importer {
	t.Helper()

	if cfg.RootAccount == "" {
		cfg.RootAccount = "Assets:Vorsorge:S3a:Viac:Portfolio1"
	}
	if cfg.Shares == nil {
		cfg.Shares = map[string]Share{
			"CSIF SMI": {Symbol: "CSIFSMI", ISIN: "CH0033782431"},
		}
	}
	imp, err := New(cfg)
	assert.NoError(t, err)
	return imp
}

func TestIdentify(t *testing.T) {
	imp := testImporter(t, Config{})

	assert.True(t, imp.Identify("viac_S3a_Portfolio2.json"))
	assert.True(t, imp.Identify("viac_S2_transactions.json"))
	assert.False(t, imp.Identify("viseca_2023.json"))
}

func TestMainAccount(t *testing.T) {
	imp := testImporter(t, Config{})

	tests := []struct {
		filename string
		want     bean.Account
	}{
		{"viac_S3a_Portfolio2.json", "Assets:Vorsorge:S3a:Viac:Portfolio2"},
		{"viac_S3a_Portfolio1.json", "Assets:Vorsorge:S3a:Viac:Portfolio1"},
		// Pillar 2 always books on the vested-benefits portfolio.
		{"viac_S2_transactions.json", "Assets:Vorsorge:S2:Viac:Freizuegigkeit"},
	}

	for _, tt := range tests {
		account, err := imp.mainAccount(tt.filename)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, account)
	}

	_, err := imp.mainAccount("transactions.json")
	assert.Error(t, err)
}

func TestExtract_InterestAndFees(t *testing.T) {
	imp := testImporter(t, Config{})

	// Rows arrive newest booking first, the way the endpoint delivers them.
	input := `{"transactions": {"600123.40": [
		{"type": "FEE_CHARGE", "valueDate": "2023-12-31", "amountInChf": -2.10, "balanceAfterBooking": 4999.15, "description": "Verwaltungsgebuehr"},
		{"type": "INTEREST", "valueDate": "2023-12-31", "amountInChf": 1.25, "balanceAfterBooking": 5001.25, "description": "Zins"}
	]}}`

	directives, err := imp.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))
	assert.NoError(t, err)
	// Two transactions plus the closing balance assertion.
	assert.Equal(t, 3, len(directives))

	fee := directives[0].(*bean.Transaction)
	assert.Equal(t, bean.Account("Expenses:Vorsorge:S3a:Viac:Portfolio1:Fees:CHF"), fee.Postings[0].Account)
	assert.Equal(t, "2.1 CHF", fee.Postings[0].Amount.String())

	interest := directives[1].(*bean.Transaction)
	assert.Equal(t, bean.Account("Income:Vorsorge:S3a:Viac:Portfolio1:Interest:CHF"), interest.Postings[0].Account)
	assert.Equal(t, "-1.25 CHF", interest.Postings[0].Amount.String())
	assert.Equal(t, bean.Account("Assets:Vorsorge:S3a:Viac:Portfolio1:CHF"), interest.Postings[1].Account)

	bal := directives[2].(*bean.Balance)
	assert.Equal(t, "2024-01-01", bal.Date().String())
	assert.Equal(t, bean.Account("Assets:Vorsorge:S3a:Viac:Portfolio1:CHF"), bal.Account)
	assert.Equal(t, "4999.15 CHF", bal.Amount.String())
}

// TestExtract_BalanceFirstRowOfNewestDay covers several bookings sharing the
// newest value date: the first row carries the day's closing balance, later
// rows with the same date must not overwrite it.
func TestExtract_BalanceFirstRowOfNewestDay(t *testing.T) {
	imp := testImporter(t, Config{})

	input := `{"transactions": {"600123.40": [
		{"type": "FEE_CHARGE", "valueDate": "2023-12-31", "amountInChf": -2.10, "balanceAfterBooking": 4999.15, "description": "Verwaltungsgebuehr"},
		{"type": "INTEREST", "valueDate": "2023-12-31", "amountInChf": 1.25, "balanceAfterBooking": 5001.25, "description": "Zins"},
		{"type": "INTEREST", "valueDate": "2023-06-30", "amountInChf": 1.00, "balanceAfterBooking": 5000.00, "description": "Zins"}
	]}}`

	directives, err := imp.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))
	assert.NoError(t, err)

	bal := directives[len(directives)-1].(*bean.Balance)
	assert.Equal(t, "2024-01-01", bal.Date().String())
	assert.Equal(t, "4999.15 CHF", bal.Amount.String())
}

// TestExtract_Trade covers the zero-quantity placeholder: the export has no
// quantity or price, so the position posting is flagged for manual
// completion.
func TestExtract_Trade(t *testing.T) {
	imp := testImporter(t, Config{})

	input := `{"transactions": {"600123.40": [
		{"type": "TRADE_BUY", "valueDate": "2023-06-01", "amountInChf": -250.00, "balanceAfterBooking": 4750.00, "description": "CSIF SMI", "documentNumber": "DOC-1"}
	]}}`

	directives, err := imp.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(directives))

	txn := directives[0].(*bean.Transaction)
	assert.Equal(t, "!", txn.Flag)
	assert.Equal(t, "CH0033782431", txn.Payee)
	assert.Contains(t, txn.Narration, "BUY CSIFSMI")
	assert.Contains(t, txn.Meta("document"), "DOC-1")

	position := txn.Postings[0]
	assert.Equal(t, bean.Account("Assets:Vorsorge:S3a:Viac:Portfolio1:CSIFSMI"), position.Account)
	assert.Equal(t, "0 CSIFSMI", position.Amount.String())
	assert.NotZero(t, position.Cost)
	assert.Equal(t, "-250 CHF", txn.Postings[1].Amount.String())
}

func TestExtract_Dividend(t *testing.T) {
	imp := testImporter(t, Config{})

	input := `{"transactions": {"600123.40": [
		{"type": "DIVIDEND", "valueDate": "2023-07-15", "amountInChf": 12.30, "balanceAfterBooking": 4762.30, "description": "CSIF SMI"}
	]}}`

	directives, err := imp.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))
	assert.NoError(t, err)

	txn := directives[0].(*bean.Transaction)
	assert.Equal(t, bean.Account("Income:Vorsorge:S3a:Viac:Portfolio1:CSIFSMI:Div"), txn.Postings[0].Account)
	assert.Equal(t, "-12.3 CHF", txn.Postings[0].Amount.String())
	assert.Equal(t, "CH0033782431", txn.Meta("isin"))
}

// TestExtract_UnmappedShare covers the hard stop: a trade whose description
// is missing from the share table aborts the file with no directives.
func TestExtract_UnmappedShare(t *testing.T) {
	imp := testImporter(t, Config{})

	input := `{"transactions": {"600123.40": [
		{"type": "TRADE_BUY", "valueDate": "2023-06-01", "amountInChf": -250.00, "balanceAfterBooking": 4750.00, "description": "CSIF Emerging Markets"}
	]}}`

	directives, err := imp.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))

	var unmapped *importer.UnmappedInstrumentError
	assert.True(t, errors.As(err, &unmapped))
	assert.Equal(t, "CSIF Emerging Markets", unmapped.Instrument)
	assert.Equal(t, []string{"CSIF SMI"}, unmapped.Known)
	assert.Zero(t, directives)
}

// TestExtract_ContributionSuppressed covers deposits without a configured
// counter account: no transaction, but the balance assertion still tracks.
func TestExtract_ContributionSuppressed(t *testing.T) {
	input := `{"transactions": {"600123.40": [
		{"type": "CONTRIBUTION", "valueDate": "2023-01-05", "amountInChf": 500.00, "balanceAfterBooking": 500.00, "description": "Einzahlung"}
	]}}`

	imp := testImporter(t, Config{})
	directives, err := imp.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(directives))
	_, isBalance := directives[0].(*bean.Balance)
	assert.True(t, isBalance)

	withDeposit := testImporter(t, Config{DepositAccount: "Assets:Cash:Checking"})
	directives, err = withDeposit.Extract(context.Background(), "viac_S3a_Portfolio1.json", strings.NewReader(input))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(directives))

	txn := directives[0].(*bean.Transaction)
	assert.Equal(t, []string{"viac-deposit"}, txn.Tags)
	assert.Equal(t, bean.Account("Assets:Cash:Checking"), txn.Postings[0].Account)
	assert.Equal(t, "-500 CHF", txn.Postings[0].Amount.String())
}

// TestExtract_SkipsTransferAccounts covers the D1/D2 transfer accounts and
// the extra-mandatory ".U" key mapping of pillar 2.
func TestExtract_AccountKeys(t *testing.T) {
	imp := testImporter(t, Config{RootAccount: "Assets:Vorsorge:S2:Viac:Freizuegigkeit"})

	input := `{"transactions": {
		"600123.40D1": [
			{"type": "INTEREST", "valueDate": "2023-12-31", "amountInChf": 9.99, "balanceAfterBooking": 9.99, "description": "Zins"}
		],
		"600123.40.U": [
			{"type": "INTEREST", "valueDate": "2023-12-31", "amountInChf": 1.00, "balanceAfterBooking": 101.00, "description": "Zins"}
		]
	}}`

	directives, err := imp.Extract(context.Background(), "viac_S2_transactions.json", strings.NewReader(input))
	assert.NoError(t, err)
	// The D1 transfer account is skipped entirely.
	assert.Equal(t, 2, len(directives))

	txn := directives[0].(*bean.Transaction)
	assert.Equal(t, bean.Account("Assets:Vorsorge:S2:Viac:Ueberobligatorium:CHF"), txn.Postings[1].Account)
	assert.Equal(t, "600123.40.U", txn.Meta("source-account"))
}
