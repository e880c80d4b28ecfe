package ibkr

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

const sampleReport = `<FlexQueryResponse queryName="ledger" type="AF">
  <FlexStatements count="1">
    <FlexStatement accountId="U1234567" fromDate="2023-06-01" toDate="2023-06-30">
      <AccountInformation accountId="U1234567" acctAlias="Main" />
      <Trades>
        <Trade transactionID="100001" tradeID="T1" symbol="VT" description="VANGUARD TOT WORLD STK ETF" isin="US9220427424" currency="USD"
               quantity="10" tradePrice="95.25" proceeds="-952.5" ibCommission="-1" ibCommissionCurrency="USD"
               buySell="BUY" tradeDate="20230601" dateTime="20230601;093000" levelOfDetail="EXECUTION" />
        <Trade transactionID="100002" tradeID="T2" symbol="VT" isin="US9220427424" currency="USD"
               quantity="-10" tradePrice="99" proceeds="990" ibCommission="-1.1" ibCommissionCurrency="USD"
               buySell="SELL" tradeDate="20230620" dateTime="20230620;100000" levelOfDetail="EXECUTION" />
        <Trade symbol="VT" currency="USD" quantity="10" tradePrice="95.25" openDateTime="20230601;093000"
               buySell="SELL" levelOfDetail="CLOSED_LOT" />
        <Trade transactionID="100003" symbol="USD.CHF" currency="CHF" quantity="1000" tradePrice="0.905"
               proceeds="-905" ibCommission="-0.97" ibCommissionCurrency="CHF" buySell="BUY"
               tradeDate="20230610" dateTime="20230610;110000" levelOfDetail="EXECUTION" />
      </Trades>
      <CashTransactions>
        <CashTransaction transactionID="200001" type="Dividends" currency="USD" amount="8.8" symbol="VT" isin="US9220427424"
                         description="VT(US9220427424) CASH DIVIDEND USD 0.88 PER SHARE (Ordinary Dividend)" reportDate="2023-06-15" />
        <CashTransaction transactionID="200002" type="Withholding Tax" currency="USD" amount="-1.32" symbol="VT" isin="US9220427424"
                         description="VT(US9220427424) CASH DIVIDEND USD 0.88 PER SHARE - US TAX" reportDate="2023-06-15" />
        <CashTransaction transactionID="200003" type="Deposits/Withdrawals" currency="CHF" amount="1000"
                         description="CASH RECEIPTS / ELECTRONIC FUND TRANSFERS" reportDate="2023-06-05" />
        <CashTransaction transactionID="200004" type="Broker Interest Received" currency="USD" amount="1.1"
                         description="USD CREDIT INT FOR JUN-2023" reportDate="2023-06-30" />
        <CashTransaction transactionID="200005" type="Other Fees" currency="USD" amount="-2.5"
                         description="BALANCE OF MONTHLY MINIMUM FEE FOR JUN 2023" reportDate="2023-06-30" />
      </CashTransactions>
      <CashReport>
        <CashReportCurrency currency="BASE_SUMMARY" endingCash="1000.123" fromDate="2023-06-01" toDate="2023-06-30" />
        <CashReportCurrency currency="USD" endingCash="36.552" fromDate="2023-06-01" toDate="2023-06-30" />
        <CashReportCurrency currency="CHF" endingCash="95.03" fromDate="2023-06-01" toDate="2023-06-30" />
      </CashReport>
      <CorporateActions>
        <CorporateAction type="FS" symbol="AAPL" isin="US0378331005" currency="USD" quantity="30"
                         dateTime="20230607;202500" reportDate="2023-06-08"
                         actionDescription="AAPL(US0378331005) SPLIT 4 FOR 1 (AAPL, APPLE INC, US0378331005)" />
      </CorporateActions>
      <OpenPositions>
        <OpenPosition symbol="VT" currency="USD" position="10" markPrice="99.95" reportDate="2023-06-30" />
      </OpenPositions>
    </FlexStatement>
  </FlexStatements>
</FlexQueryResponse>`

func TestParse(t *testing.T) {
	resp, err := Parse([]byte(sampleReport))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Statements))

	stmt := resp.Statements[0]
	assert.Equal(t, "U1234567", stmt.AccountID)
	assert.Equal(t, "Main", stmt.AccountInformation.Alias)
	assert.Equal(t, "2023-06-30", stmt.ToDate.Format("2006-01-02"))

	assert.Equal(t, 4, len(stmt.Trades))
	buy := stmt.Trades[0]
	assert.True(t, buy.IsBuy())
	assert.False(t, buy.IsSell())
	assert.Equal(t, LevelExecution, buy.LevelOfDetail)
	assert.True(t, buy.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, buy.Proceeds.Equal(decimal.RequireFromString("-952.5")))
	assert.Equal(t, "2023-06-01", buy.DateTime.Format("2006-01-02"))

	lot := stmt.Trades[2]
	assert.Equal(t, LevelClosedLot, lot.LevelOfDetail)
	assert.Equal(t, "2023-06-01", lot.OpenDateTime.Format("2006-01-02"))

	assert.Equal(t, 5, len(stmt.CashTransactions))
	assert.True(t, stmt.CashTransactions[0].IsDividend())
	assert.True(t, stmt.CashTransactions[3].IsInterest())

	assert.Equal(t, 3, len(stmt.CashReport))
	assert.Equal(t, 1, len(stmt.CorporateActions))
	assert.Equal(t, 1, len(stmt.OpenPositions))
	assert.True(t, stmt.OpenPositions[0].MarkPrice.Equal(decimal.RequireFromString("99.95")))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("Type,Product\nCARD,Current\n"))
	assert.Error(t, err)
}

func TestDecimalAttr(t *testing.T) {
	input := `<FlexQueryResponse>
  <FlexStatements>
    <FlexStatement>
      <Trades>
        <Trade quantity="1,234.5" tradePrice="" buySell="BUY" levelOfDetail="EXECUTION" />
      </Trades>
    </FlexStatement>
  </FlexStatements>
</FlexQueryResponse>`

	resp, err := Parse([]byte(input))
	assert.NoError(t, err)

	trade := resp.Statements[0].Trades[0]
	// Comma separators decode, empty attributes become zero.
	assert.True(t, trade.Quantity.Equal(decimal.RequireFromString("1234.5")))
	assert.True(t, trade.TradePrice.IsZero())
}

func TestDateAttrLayouts(t *testing.T) {
	input := `<FlexQueryResponse>
  <FlexStatements>
    <FlexStatement fromDate="20230601" toDate="2023-06-30" />
  </FlexStatements>
</FlexQueryResponse>`

	resp, err := Parse([]byte(input))
	assert.NoError(t, err)
	assert.Equal(t, "2023-06-01", resp.Statements[0].FromDate.Format("2006-01-02"))
	assert.Equal(t, "2023-06-30", resp.Statements[0].ToDate.Format("2006-01-02"))
}
