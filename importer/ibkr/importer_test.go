package ibkr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

func testImporter(t *testing.T, mutate func(*Config)) *Importer {
	t.Helper()
	cfg := Config{
		MainAccount: "Assets:Stocks:IB",
		DivAccount:  "Income:Dividends:IB",
		WHTAccount:  "Expenses:Stocks:IB:WHT",
		PnLAccount:  "Income:Stocks:IB:PnL",
		FeesAccount: "Expenses:Stocks:IB:Fees",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	imp, err := New(cfg)
	assert.NoError(t, err)
	return imp
}

func extract(t *testing.T, imp *Importer, report string) []bean.Directive {
	t.Helper()
	directives, err := imp.Extract(context.Background(), "ibkr-2023.xml", strings.NewReader(report))
	assert.NoError(t, err)
	return directives
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{MainAccount: "BadRoot:IB"})
	assert.Error(t, err)

	imp := testImporter(t, nil)
	assert.Equal(t, "ibkr", imp.Name())
	assert.Equal(t, bean.Account("Assets:Stocks:IB"), imp.Account())
}

func TestIdentify(t *testing.T) {
	imp := testImporter(t, nil)

	assert.True(t, imp.Identify("exports/ibkr.yaml"))
	assert.True(t, imp.Identify("exports/ibkr-2023-06.xml"))
	assert.True(t, imp.Identify("exports/IBKR-June.XML"))
	assert.False(t, imp.Identify("exports/revolut.csv"))
	assert.False(t, imp.Identify("exports/viac.pdf"))
}

func TestExtract(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	// 3 trades, interest, fee, dividend group, split, 2 balances. The
	// deposit is suppressed without a deposit account.
	assert.Equal(t, 9, len(directives))

	buy, ok := directives[0].(*bean.Transaction)
	assert.True(t, ok)
	assert.Equal(t, "BUY 10 VT @ 95.25 USD", buy.Narration)
	assert.Equal(t, "VT", buy.Payee)
	assert.Equal(t, "*", buy.Flag)
	assert.Equal(t, "100001", buy.Meta(importer.MetaImportID))
	assert.Equal(t, "US9220427424", buy.Meta("isin"))
	assert.Equal(t, 4, len(buy.Postings))
	position := buy.Postings[0]
	assert.Equal(t, bean.Account("Assets:Stocks:IB:Main:VT"), position.Account)
	assert.Equal(t, "10 VT", position.Amount.String())
	assert.Equal(t, "95.25 USD", position.Cost.PerUnit.String())
	assert.Equal(t, "2023-06-01", position.Cost.Date.String())
	assert.Equal(t, bean.Account("Assets:Cash:IB:Main:USD"), buy.Postings[1].Account)
	assert.Equal(t, "-952.5 USD", buy.Postings[1].Amount.String())
	assert.Equal(t, "-1 USD", buy.Postings[2].Amount.String())
	assert.Equal(t, bean.Account("Expenses:Stocks:IB:Fees:USD"), buy.Postings[3].Account)
	assert.Equal(t, "1 USD", buy.Postings[3].Amount.String())
}

func TestExtract_SellWithClosedLot(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	sell, ok := directives[1].(*bean.Transaction)
	assert.True(t, ok)
	assert.Equal(t, "SELL -10 VT @ 99 USD", sell.Narration)
	assert.Equal(t, "*", sell.Flag)
	assert.Equal(t, "", sell.Meta("lots-incomplete"))
	assert.Equal(t, 5, len(sell.Postings))

	assert.Equal(t, "990 USD", sell.Postings[0].Amount.String())

	lot := sell.Postings[1]
	assert.Equal(t, bean.Account("Assets:Stocks:IB:Main:VT"), lot.Account)
	assert.Equal(t, "-10 VT", lot.Amount.String())
	assert.Equal(t, "95.25 USD", lot.Cost.PerUnit.String())
	assert.Equal(t, "2023-06-01", lot.Cost.Date.String())
	assert.Equal(t, "99 USD", lot.Price.String())

	pnl := sell.Postings[2]
	assert.Equal(t, bean.Account("Income:Stocks:IB:PnL"), pnl.Account)
	assert.Zero(t, pnl.Amount)

	assert.Equal(t, "-1.1 USD", sell.Postings[3].Amount.String())
	assert.Equal(t, "1.1 USD", sell.Postings[4].Amount.String())
}

func TestExtract_SellIncompleteLots(t *testing.T) {
	report := `<FlexQueryResponse>
  <FlexStatements>
    <FlexStatement toDate="2023-06-30">
      <AccountInformation acctAlias="Main" />
      <Trades>
        <Trade transactionID="1" symbol="VT" currency="USD" quantity="-10" tradePrice="99" proceeds="990"
               ibCommission="-1" ibCommissionCurrency="USD" buySell="SELL" tradeDate="20230620" levelOfDetail="EXECUTION" />
        <Trade symbol="VT" currency="USD" quantity="4" tradePrice="95" openDateTime="20230601" buySell="SELL" levelOfDetail="CLOSED_LOT" />
      </Trades>
    </FlexStatement>
  </FlexStatements>
</FlexQueryResponse>`

	imp := testImporter(t, nil)
	directives := extract(t, imp, report)
	assert.Equal(t, 1, len(directives))

	sell := directives[0].(*bean.Transaction)
	assert.Equal(t, "!", sell.Flag)
	assert.Equal(t, "true", sell.Meta("lots-incomplete"))
	// One lot posting for the 4 shares that could be matched.
	assert.Equal(t, 5, len(sell.Postings))
	assert.Equal(t, "-4 VT", sell.Postings[1].Amount.String())
}

func TestExtract_SuppressClosedLotPrice(t *testing.T) {
	imp := testImporter(t, func(cfg *Config) { cfg.SuppressClosedLotPrice = true })
	directives := extract(t, imp, sampleReport)

	sell := directives[1].(*bean.Transaction)
	assert.Equal(t, "0 USD", sell.Postings[1].Cost.PerUnit.String())
}

func TestExtract_Forex(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	fx, ok := directives[2].(*bean.Transaction)
	assert.True(t, ok)
	assert.Equal(t, "BUY 1000 USD @ 0.905 CHF", fx.Narration)
	assert.Equal(t, "USD.CHF", fx.Payee)
	assert.Equal(t, 4, len(fx.Postings))

	usd := fx.Postings[0]
	assert.Equal(t, bean.Account("Assets:Cash:IB:Main:USD"), usd.Account)
	assert.Equal(t, "1000 USD", usd.Amount.String())
	assert.Equal(t, "0.905 CHF", usd.Price.String())
	assert.Equal(t, bean.Account("Assets:Cash:IB:Main:CHF"), fx.Postings[1].Account)
	assert.Equal(t, "-905 CHF", fx.Postings[1].Amount.String())
	assert.Equal(t, "-0.97 CHF", fx.Postings[2].Amount.String())
	assert.Equal(t, bean.Account("Expenses:Stocks:IB:Fees:CHF"), fx.Postings[3].Account)
}

func TestExtract_Interest(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	interest := directives[3].(*bean.Transaction)
	assert.Equal(t, "Interest USD JUN-2023", interest.Narration)
	assert.Equal(t, "IB", interest.Payee)
	assert.Equal(t, "2023-06-30", interest.TxnDate.String())
	assert.Equal(t, bean.Account("Income:Stocks:IB:Main:Interest:USD"), interest.Postings[0].Account)
	assert.Equal(t, "-1.1 USD", interest.Postings[0].Amount.String())
	assert.Equal(t, "1.1 USD", interest.Postings[1].Amount.String())
}

func TestExtract_Fee(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	fee := directives[4].(*bean.Transaction)
	assert.Equal(t, "Fee USD JUN 2023", fee.Narration)
	assert.Equal(t, bean.Account("Expenses:Stocks:IB:Fees:USD"), fee.Postings[0].Account)
	assert.Equal(t, "2.5 USD", fee.Postings[0].Amount.String())
	assert.Equal(t, "-2.5 USD", fee.Postings[1].Amount.String())
}

func TestExtract_DividendWithWHT(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	div := directives[5].(*bean.Transaction)
	assert.Equal(t, "Dividend VT (0.88 per share)", div.Narration)
	assert.Equal(t, "2023-06-15", div.TxnDate.String())
	assert.Equal(t, "div-VT_0.88_2023-06-15", div.Meta(importer.MetaImportID))
	assert.Equal(t, "US9220427424", div.Meta("isin"))
	assert.Equal(t, "0.88", div.Meta("dividend-rate"))
	assert.Equal(t, 3, len(div.Postings))

	assert.Equal(t, bean.Account("Income:Dividends:IB:Main:USD"), div.Postings[0].Account)
	assert.Equal(t, "-8.8 USD", div.Postings[0].Amount.String())
	assert.Equal(t, bean.Account("Expenses:Stocks:IB:WHT"), div.Postings[1].Account)
	assert.Equal(t, "1.32 USD", div.Postings[1].Amount.String())
	assert.Equal(t, "7.48 USD", div.Postings[2].Amount.String())
}

func TestExtract_DividendAwaitingWHT(t *testing.T) {
	report := `<FlexQueryResponse>
  <FlexStatements>
    <FlexStatement toDate="2023-06-30">
      <AccountInformation acctAlias="Main" />
      <CashTransactions>
        <CashTransaction transactionID="1" type="Dividends" currency="USD" amount="5" symbol="VEUR"
                         description="VEUR(IE00B945VV12) CASH DIVIDEND USD 0.50 PER SHARE" reportDate="2023-06-20" />
        <CashTransaction transactionID="2" type="Withholding Tax" currency="USD" amount="-0.3" symbol="VFEM"
                         description="VFEM(IE00B3VVMM84) CASH DIVIDEND USD 0.30 PER SHARE - TAX" reportDate="2023-06-21" />
      </CashTransactions>
    </FlexStatement>
  </FlexStatements>
</FlexQueryResponse>`

	imp := testImporter(t, nil)
	directives := extract(t, imp, report)
	assert.Equal(t, 2, len(directives))

	div := directives[0].(*bean.Transaction)
	assert.Equal(t, "Dividend VEUR (awaiting WHT)", div.Narration)
	assert.Equal(t, "true", div.Meta("awaiting-wht"))
	assert.Equal(t, "IE00B945VV12", div.Meta("isin"))
	assert.Equal(t, "-5 USD", div.Postings[0].Amount.String())

	wht := directives[1].(*bean.Transaction)
	assert.Equal(t, "WHT VFEM (awaiting dividend)", wht.Narration)
	assert.Equal(t, "true", wht.Meta("awaiting-dividend"))
	assert.Equal(t, bean.Account("Expenses:Stocks:IB:WHT"), wht.Postings[0].Account)
	assert.Equal(t, "0.3 USD", wht.Postings[0].Amount.String())
}

func TestExtract_DepositEnabled(t *testing.T) {
	imp := testImporter(t, func(cfg *Config) { cfg.DepositAccount = "Assets:Cash:Checking" })
	directives := extract(t, imp, sampleReport)
	assert.Equal(t, 10, len(directives))

	deposit := directives[3].(*bean.Transaction)
	assert.Equal(t, "deposit / withdrawal", deposit.Narration)
	assert.Equal(t, "self", deposit.Payee)
	assert.Equal(t, bean.Account("Assets:Cash:Checking"), deposit.Postings[0].Account)
	assert.Equal(t, "-1000 CHF", deposit.Postings[0].Amount.String())
	assert.Equal(t, bean.Account("Assets:Cash:IB:Main:CHF"), deposit.Postings[1].Account)
	assert.Equal(t, "1000 CHF", deposit.Postings[1].Amount.String())
}

func TestExtract_Split(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	split := directives[6].(*bean.Transaction)
	assert.Equal(t, "Stock split AAPL (4:1)", split.Narration)
	assert.Equal(t, "2023-06-07", split.TxnDate.String())
	assert.Equal(t, "4:1", split.Meta("split-ratio"))
	assert.Equal(t, 1, len(split.Postings))
	assert.Equal(t, bean.Account("Assets:Stocks:IB:Main:AAPL"), split.Postings[0].Account)
	assert.Equal(t, "30 AAPL", split.Postings[0].Amount.String())
	assert.Equal(t, "0 USD", split.Postings[0].Cost.PerUnit.String())
}

func TestExtract_Balances(t *testing.T) {
	imp := testImporter(t, nil)
	directives := extract(t, imp, sampleReport)

	usd, ok := directives[7].(*bean.Balance)
	assert.True(t, ok)
	assert.Equal(t, "2023-07-01", usd.AssertDate.String())
	assert.Equal(t, bean.Account("Assets:Cash:IB:Main:USD"), usd.Account)
	assert.Equal(t, "36.55 USD", usd.Amount.String())

	chf := directives[8].(*bean.Balance)
	assert.Equal(t, bean.Account("Assets:Cash:IB:Main:CHF"), chf.Account)
	assert.Equal(t, "95.03 CHF", chf.Amount.String())
}

func TestExtract_InvalidInput(t *testing.T) {
	imp := testImporter(t, nil)
	_, err := imp.Extract(context.Background(), "ibkr.yaml", strings.NewReader("Type,Product\nCARD,Current\n"))
	assert.Error(t, err)

	var ferr *importer.FormatError
	assert.True(t, errors.As(err, &ferr))
}

func TestFormatAlias(t *testing.T) {
	tests := []struct {
		alias string
		want  string
	}{
		{"Main", "Main"},
		{"long term", "Long-term"},
		{" trading ", "Trading"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatAlias(tt.alias))
	}
}
