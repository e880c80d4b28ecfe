// Package ibkr imports Interactive Brokers FlexQuery activity reports.
//
// A FlexQuery report is an XML document with one FlexStatement per account,
// each holding trades, cash transactions, the cash report, corporate
// actions, and open positions. The importer maps them to ledger directives:
// stock and forex trades (with closed-lot matching on sales), dividends
// joined with their withholding tax, interest, broker fees, deposits,
// forward splits, and balance assertions from the cash report.
//
// Reports are either read from a saved XML file or downloaded through the
// Flex Web Service using credentials from a small YAML file (see Config).
package ibkr

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FlexQueryResponse is the root element of a FlexQuery report.
type FlexQueryResponse struct {
	XMLName    xml.Name        `xml:"FlexQueryResponse"`
	QueryName  string          `xml:"queryName,attr"`
	Type       string          `xml:"type,attr"`
	Statements []FlexStatement `xml:"FlexStatements>FlexStatement"`
}

// FlexStatement is one account's activity within the report.
type FlexStatement struct {
	AccountID          string             `xml:"accountId,attr"`
	FromDate           Date               `xml:"fromDate,attr"`
	ToDate             Date               `xml:"toDate,attr"`
	AccountInformation AccountInformation `xml:"AccountInformation"`
	Trades             []Trade            `xml:"Trades>Trade"`
	CashTransactions   []CashTransaction  `xml:"CashTransactions>CashTransaction"`
	CashReport         []CashReportEntry  `xml:"CashReport>CashReportCurrency"`
	CorporateActions   []CorporateAction  `xml:"CorporateActions>CorporateAction"`
	OpenPositions      []OpenPosition     `xml:"OpenPositions>OpenPosition"`
}

// AccountInformation carries the account alias configured at IBKR. The
// alias is folded into the account hierarchy, so "Long Term" becomes the
// segment "Long-Term".
type AccountInformation struct {
	AccountID string `xml:"accountId,attr"`
	Alias     string `xml:"acctAlias,attr"`
}

// Trade levels of detail. Executions are actual trades; closed lots are the
// informational rows following a sell that describe which lots it closed.
const (
	LevelExecution = "EXECUTION"
	LevelClosedLot = "CLOSED_LOT"
)

// Buy/sell codes. Cancellation rows ("BUY (Ca.)") are kept so that the
// cancelled trade and its reversal balance out.
const (
	SideBuy           = "BUY"
	SideSell          = "SELL"
	SideBuyCancelled  = "BUY (Ca.)"
	SideSellCancelled = "SELL (Ca.)"
)

// Trade is one row of the Trades section.
type Trade struct {
	TransactionID        string   `xml:"transactionID,attr"`
	TradeID              string   `xml:"tradeID,attr"`
	Symbol               string   `xml:"symbol,attr"`
	Description          string   `xml:"description,attr"`
	ISIN                 string   `xml:"isin,attr"`
	Currency             string   `xml:"currency,attr"`
	Quantity             Decimal  `xml:"quantity,attr"`
	TradePrice           Decimal  `xml:"tradePrice,attr"`
	Proceeds             Decimal  `xml:"proceeds,attr"`
	IBCommission         Decimal  `xml:"ibCommission,attr"`
	IBCommissionCurrency string   `xml:"ibCommissionCurrency,attr"`
	BuySell              string   `xml:"buySell,attr"`
	TradeDate            Date     `xml:"tradeDate,attr"`
	DateTime             DateTime `xml:"dateTime,attr"`
	OpenDateTime         DateTime `xml:"openDateTime,attr"`
	LevelOfDetail        string   `xml:"levelOfDetail,attr"`
}

// IsBuy reports whether the trade is a purchase or its cancellation.
func (t *Trade) IsBuy() bool {
	return t.BuySell == SideBuy || t.BuySell == SideBuyCancelled
}

// IsSell reports whether the trade is a sale or its cancellation.
func (t *Trade) IsSell() bool {
	return t.BuySell == SideSell || t.BuySell == SideSellCancelled
}

// Cash transaction types as they appear in the type attribute.
const (
	CashDividend         = "Dividends"
	CashPaymentInLieu    = "Payment In Lieu Of Dividends"
	CashWithholdingTax   = "Withholding Tax"
	CashDeposit          = "Deposits/Withdrawals"
	CashInterestReceived = "Broker Interest Received"
	CashInterestPaid     = "Broker Interest Paid"
	CashFees             = "Other Fees"
)

// CashTransaction is one row of the CashTransactions section.
type CashTransaction struct {
	TransactionID string  `xml:"transactionID,attr"`
	Type          string  `xml:"type,attr"`
	Currency      string  `xml:"currency,attr"`
	Amount        Decimal `xml:"amount,attr"`
	Description   string  `xml:"description,attr"`
	Symbol        string  `xml:"symbol,attr"`
	ISIN          string  `xml:"isin,attr"`
	ReportDate    Date    `xml:"reportDate,attr"`
}

// IsDividend reports whether the row is dividend income, including payments
// in lieu.
func (c *CashTransaction) IsDividend() bool {
	return c.Type == CashDividend || c.Type == CashPaymentInLieu
}

// IsInterest reports whether the row is broker interest, paid or received.
func (c *CashTransaction) IsInterest() bool {
	return c.Type == CashInterestReceived || c.Type == CashInterestPaid
}

// CashReportEntry is one currency's row of the CashReport section.
type CashReportEntry struct {
	Currency   string  `xml:"currency,attr"`
	EndingCash Decimal `xml:"endingCash,attr"`
	FromDate   Date    `xml:"fromDate,attr"`
	ToDate     Date    `xml:"toDate,attr"`
}

// CorporateAction is one row of the CorporateActions section.
type CorporateAction struct {
	Type              string   `xml:"type,attr"`
	Symbol            string   `xml:"symbol,attr"`
	ISIN              string   `xml:"isin,attr"`
	Currency          string   `xml:"currency,attr"`
	Quantity          Decimal  `xml:"quantity,attr"`
	DateTime          DateTime `xml:"dateTime,attr"`
	ReportDate        Date     `xml:"reportDate,attr"`
	ActionDescription string   `xml:"actionDescription,attr"`
}

// OpenPosition is one row of the OpenPositions section, used by the price
// fetcher.
type OpenPosition struct {
	Symbol     string  `xml:"symbol,attr"`
	Currency   string  `xml:"currency,attr"`
	Position   Decimal `xml:"position,attr"`
	MarkPrice  Decimal `xml:"markPrice,attr"`
	ReportDate Date    `xml:"reportDate,attr"`
}

// Parse decodes a FlexQuery report.
func Parse(data []byte) (*FlexQueryResponse, error) {
	var resp FlexQueryResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("cannot parse FlexQuery report: %w", err)
	}
	return &resp, nil
}

// Decimal is a decimal XML attribute. IBKR writes empty attributes for
// absent values and occasionally uses comma thousands separators; both are
// tolerated.
type Decimal struct {
	decimal.Decimal
}

func (d *Decimal) UnmarshalXMLAttr(attr xml.Attr) error {
	s := strings.TrimSpace(strings.ReplaceAll(attr.Value, ",", ""))
	if s == "" {
		d.Decimal = decimal.Zero
		return nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid decimal attribute %s=%q: %w", attr.Name.Local, attr.Value, err)
	}
	d.Decimal = v
	return nil
}

// Date is a date XML attribute in either of the report formats (yyyyMMdd or
// yyyy-MM-dd).
type Date struct {
	time.Time
}

var dateLayouts = []string{"20060102", "2006-01-02"}

func (d *Date) UnmarshalXMLAttr(attr xml.Attr) error {
	s := strings.TrimSpace(attr.Value)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date attribute %s=%q", attr.Name.Local, attr.Value)
}

// DateTime is a timestamp XML attribute ("yyyyMMdd;HHmmss"); a plain date is
// accepted as midnight.
type DateTime struct {
	time.Time
}

var dateTimeLayouts = []string{"20060102;150405", "2006-01-02;15:04:05", "20060102", "2006-01-02"}

func (d *DateTime) UnmarshalXMLAttr(attr xml.Attr) error {
	s := strings.TrimSpace(attr.Value)
	if s == "" {
		return nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid datetime attribute %s=%q", attr.Name.Local, attr.Value)
}
