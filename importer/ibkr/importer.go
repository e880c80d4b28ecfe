package ibkr

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer"
)

// Config is the static configuration for the IBKR importer. Every account
// is validated at construction time.
type Config struct {
	// MainAccount is the root of the position accounts, e.g.
	// "Assets:Stocks:IB". The liquidity accounts are derived from it by
	// swapping StockSegment for CashSegment:
	// "Assets:Stocks:IB" -> "Assets:Cash:IB:USD".
	MainAccount string `yaml:"main_account"`
	// DivAccount receives dividend income, e.g. "Income:Dividends:IB".
	DivAccount string `yaml:"div_account"`
	// WHTAccount receives withholding tax, e.g. "Expenses:Stocks:IB:WHT".
	WHTAccount string `yaml:"wht_account"`
	// PnLAccount absorbs realized gains on sales, e.g.
	// "Income:Stocks:IB:PnL".
	PnLAccount string `yaml:"pnl_account"`
	// FeesAccount receives commissions and broker fees, per currency, e.g.
	// "Expenses:Stocks:IB:Fees".
	FeesAccount string `yaml:"fees_account"`
	// DepositAccount is the counter account for deposits and withdrawals.
	// Leave empty to suppress them; they are usually covered by the
	// checking account's statement.
	DepositAccount string `yaml:"deposit_account"`
	// StockSegment and CashSegment control the position-to-liquidity
	// account derivation. Defaults: "Stocks" and "Cash".
	StockSegment string `yaml:"stock_segment"`
	CashSegment  string `yaml:"cash_segment"`
	// InterestSuffix is the segment of interest income accounts.
	// Defaults to "Interest".
	InterestSuffix string `yaml:"interest_suffix"`
	// SuppressClosedLotPrice books closed lots at zero cost instead of the
	// lot's open price.
	SuppressClosedLotPrice bool `yaml:"suppress_closed_lot_price"`
	// CredentialsFile is the basename the importer identifies on, e.g.
	// "ibkr.yaml". A file with that name holds the Flex Web Service
	// credentials; saved report XML files (matching ReportPattern) are
	// imported offline without hitting the service.
	CredentialsFile string `yaml:"credentials_file"`
	// ReportPattern matches saved report files. Defaults to
	// `ibkr.*\.xml`.
	ReportPattern string `yaml:"report_pattern"`
}

// Importer implements importer.Importer for IBKR FlexQuery reports.
type Importer struct {
	cfg           Config
	main          bean.Account
	div           bean.Account
	wht           bean.Account
	pnl           bean.Account
	fees          bean.Account
	deposit       bean.Account
	reportPattern *regexp.Regexp
	client        *Client

	// alias is the formatted account alias of the statement currently
	// being mapped. Set per statement during Extract.
	alias string
}

// New validates the configuration and creates the importer.
func New(cfg Config) (*Importer, error) {
	if cfg.StockSegment == "" {
		cfg.StockSegment = "Stocks"
	}
	if cfg.CashSegment == "" {
		cfg.CashSegment = "Cash"
	}
	if cfg.InterestSuffix == "" {
		cfg.InterestSuffix = "Interest"
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = "ibkr.yaml"
	}
	if cfg.ReportPattern == "" {
		cfg.ReportPattern = `ibkr.*\.xml`
	}

	imp := &Importer{cfg: cfg, client: &Client{}}

	var err error
	if imp.main, err = bean.NewAccount(cfg.MainAccount); err != nil {
		return nil, fmt.Errorf("ibkr: invalid main account: %w", err)
	}
	if imp.div, err = bean.NewAccount(cfg.DivAccount); err != nil {
		return nil, fmt.Errorf("ibkr: invalid dividend account: %w", err)
	}
	if imp.wht, err = bean.NewAccount(cfg.WHTAccount); err != nil {
		return nil, fmt.Errorf("ibkr: invalid withholding tax account: %w", err)
	}
	if imp.pnl, err = bean.NewAccount(cfg.PnLAccount); err != nil {
		return nil, fmt.Errorf("ibkr: invalid PnL account: %w", err)
	}
	if imp.fees, err = bean.NewAccount(cfg.FeesAccount); err != nil {
		return nil, fmt.Errorf("ibkr: invalid fees account: %w", err)
	}
	if cfg.DepositAccount != "" {
		if imp.deposit, err = bean.NewAccount(cfg.DepositAccount); err != nil {
			return nil, fmt.Errorf("ibkr: invalid deposit account: %w", err)
		}
	}
	if imp.reportPattern, err = regexp.Compile(`(?i)` + cfg.ReportPattern); err != nil {
		return nil, fmt.Errorf("ibkr: invalid report pattern: %w", err)
	}
	return imp, nil
}

// SetClient replaces the Flex Web Service client, for tests.
func (imp *Importer) SetClient(c *Client) { imp.client = c }

func (imp *Importer) Name() string { return "ibkr" }

// Identify claims the credentials file and saved report files.
func (imp *Importer) Identify(filename string) bool {
	return filepath.Base(filename) == imp.cfg.CredentialsFile ||
		imp.reportPattern.MatchString(filepath.Base(filename))
}

func (imp *Importer) Account() bean.Account { return imp.main }

// Extract maps a FlexQuery report to directives. The input is either a
// saved report (XML) or the credentials file, in which case the report is
// downloaded through the Flex Web Service.
func (imp *Importer) Extract(ctx context.Context, filename string, r io.Reader) ([]bean.Directive, error) {
	report, err := imp.loadReport(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	resp, err := Parse(report)
	if err != nil {
		return nil, importer.NewFormatError(filename, "invalid FlexQuery report", err)
	}

	var directives []bean.Directive
	for i := range resp.Statements {
		stmt := &resp.Statements[i]
		imp.alias = formatAlias(stmt.AccountInformation.Alias)

		directives = append(directives, imp.trades(stmt.Trades)...)
		ds, err := imp.cashTransactions(stmt.CashTransactions)
		if err != nil {
			return nil, err
		}
		directives = append(directives, ds...)
		directives = append(directives, imp.corporateActions(stmt.CorporateActions)...)
		directives = append(directives, imp.balances(stmt.CashReport)...)
	}
	return directives, nil
}

// loadReport reads the report XML from the file, or downloads it when the
// file holds credentials instead.
func (imp *Importer) loadReport(ctx context.Context, filename string, r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(1)
	if len(head) == 1 && head[0] == '<' {
		return io.ReadAll(br)
	}

	creds, err := ParseCredentials(br)
	if err != nil {
		return nil, importer.NewFormatError(filename, "neither a FlexQuery report nor a credentials file", err)
	}
	report, err := imp.client.Download(ctx, creds.Token, creds.QueryID)
	if err != nil {
		return nil, fmt.Errorf("ibkr: download failed: %w", err)
	}
	return report, nil
}

// formatAlias makes the IBKR account alias usable as an account segment:
// spaces become hyphens, the first letter is uppercased.
func formatAlias(alias string) string {
	alias = strings.ReplaceAll(strings.TrimSpace(alias), " ", "-")
	if alias == "" {
		return ""
	}
	r := []rune(alias)
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}

// Account derivation. All of these fold the statement's alias segment in,
// so one FlexQuery covering several aliased accounts lands in separate
// subtrees.

func (imp *Importer) liquidityAccount(currency string) bean.Account {
	return imp.main.ReplaceSegment(imp.cfg.StockSegment, imp.cfg.CashSegment).
		Sub(imp.alias, currency)
}

func (imp *Importer) assetAccount(symbol string) bean.Account {
	return imp.main.Sub(imp.alias, symbol)
}

func (imp *Importer) divIncomeAccount(currency string) bean.Account {
	return imp.div.Sub(imp.alias, currency)
}

func (imp *Importer) interestAccount(currency string) bean.Account {
	income := bean.Account(strings.Replace(string(imp.main), "Assets", "Income", 1))
	return income.Sub(imp.alias, imp.cfg.InterestSuffix, currency)
}

func (imp *Importer) feesAccount(currency string) bean.Account {
	return imp.fees.Sub(currency)
}

// forexSymbol matches currency-pair trade symbols like "USD.CHF".
var forexSymbol = regexp.MustCompile(`^([A-Z]{3})\.([A-Z]{3})$`)

// trades maps the Trades section: forex conversions and stock executions.
func (imp *Importer) trades(trades []Trade) []bean.Directive {
	var directives []bean.Directive
	for i := range trades {
		t := &trades[i]
		if t.LevelOfDetail != LevelExecution {
			continue
		}
		if m := forexSymbol.FindStringSubmatch(t.Symbol); m != nil {
			directives = append(directives, imp.forexTrade(t, m[1], m[2]))
			continue
		}
		if t.IsBuy() {
			directives = append(directives, imp.buyTrade(t))
		} else if t.IsSell() {
			directives = append(directives, imp.sellTrade(t, closedLots(trades, i, t.Symbol)))
		}
	}
	return directives
}

// forexTrade books a currency conversion across the two liquidity accounts,
// with the commission moved onto the fees account.
func (imp *Importer) forexTrade(t *Trade, prim, sec string) *bean.Transaction {
	quantity := bean.NewAmount(t.Quantity.Round(2), prim)
	proceeds := bean.NewAmount(t.Proceeds.Round(2), sec)
	price := bean.NewAmount(t.TradePrice.Decimal, sec)
	commission := bean.NewAmount(t.IBCommission.Round(2), t.IBCommissionCurrency)

	side := SideSell
	if t.IsBuy() {
		side = SideBuy
	}
	return bean.NewTransaction(tradeDate(t), fmt.Sprintf("%s %s @ %s", side, quantity, price),
		bean.WithPayee(t.Symbol),
		bean.WithMeta(importer.MetaImportID, tradeImportID(t)),
		bean.WithPostings(
			bean.NewPosting(imp.liquidityAccount(prim),
				bean.WithAmount(quantity), bean.WithPrice(price)),
			bean.NewPosting(imp.liquidityAccount(sec), bean.WithAmount(proceeds)),
			bean.NewPosting(imp.liquidityAccount(t.IBCommissionCurrency), bean.WithAmount(commission)),
			bean.NewPosting(imp.feesAccount(t.IBCommissionCurrency), bean.WithAmount(commission.Neg())),
		),
	)
}

// buyTrade books a purchase: the position at cost, the cash and commission
// legs on liquidity, and the commission moved onto fees.
func (imp *Importer) buyTrade(t *Trade) *bean.Transaction {
	quantity := bean.NewAmount(t.Quantity.Decimal, t.Symbol)
	price := bean.NewAmount(t.TradePrice.Decimal, t.Currency)
	proceeds := bean.NewAmount(t.Proceeds.Round(2), t.Currency)
	commission := bean.NewAmount(t.IBCommission.Round(2), t.IBCommissionCurrency)
	date := tradeDate(t)

	return bean.NewTransaction(date, fmt.Sprintf("BUY %s @ %s", quantity, price),
		bean.WithPayee(t.Symbol),
		bean.WithMeta(importer.MetaImportID, tradeImportID(t)),
		bean.WithMeta("isin", t.ISIN),
		bean.WithPostings(
			bean.NewPosting(imp.assetAccount(t.Symbol),
				bean.WithAmount(quantity),
				bean.WithCost(bean.Cost{PerUnit: &price, Date: &date})),
			bean.NewPosting(imp.liquidityAccount(t.Currency), bean.WithAmount(proceeds)),
			bean.NewPosting(imp.liquidityAccount(t.IBCommissionCurrency), bean.WithAmount(commission)),
			bean.NewPosting(imp.feesAccount(t.IBCommissionCurrency), bean.WithAmount(commission.Neg())),
		),
	)
}

// closedLots collects the CLOSED_LOT rows that follow a sell execution for
// the same symbol. The report does not say how many lots a sell closed, so
// rows are consumed until their quantities add up to the sold quantity.
func closedLots(trades []Trade, sellIndex int, symbol string) []*Trade {
	var lots []*Trade
	for i := sellIndex + 1; i < len(trades); i++ {
		t := &trades[i]
		if t.Symbol != symbol {
			continue
		}
		if t.LevelOfDetail != LevelClosedLot {
			// The next execution for the symbol ends this sell's lots.
			if t.LevelOfDetail == LevelExecution {
				break
			}
			continue
		}
		lots = append(lots, t)
	}
	return lots
}

// sellTrade books a sale: proceeds on liquidity, one negative position
// posting per closed lot (with the lot's cost basis and the sale price),
// the PnL leg with its amount left for beancount to infer, and the
// commission legs.
func (imp *Importer) sellTrade(t *Trade, lots []*Trade) *bean.Transaction {
	proceeds := bean.NewAmount(t.Proceeds.Round(2), t.Currency)
	commission := bean.NewAmount(t.IBCommission.Round(2), t.IBCommissionCurrency)
	price := bean.NewAmount(t.TradePrice.Decimal, t.Currency)
	quantity := bean.NewAmount(t.Quantity.Decimal, t.Symbol)

	postings := []bean.Posting{
		bean.NewPosting(imp.liquidityAccount(t.Currency), bean.WithAmount(proceeds)),
	}

	matched := decimal.Zero
	target := t.Quantity.Neg()
	lotsComplete := false
	for _, lot := range lots {
		if matched.Add(lot.Quantity.Decimal).GreaterThan(target) {
			break
		}
		matched = matched.Add(lot.Quantity.Decimal)

		costPrice := lot.TradePrice.Round(2)
		if imp.cfg.SuppressClosedLotPrice {
			costPrice = decimal.Zero
		}
		cost := bean.NewAmount(costPrice, lot.Currency)
		openDate := bean.NewDateFromTime(lot.OpenDateTime.Time)
		postings = append(postings, bean.NewPosting(imp.assetAccount(t.Symbol),
			bean.WithAmount(bean.NewAmount(lot.Quantity.Neg(), lot.Symbol)),
			bean.WithCost(bean.Cost{PerUnit: &cost, Date: &openDate}),
			bean.WithPrice(price),
		))

		if matched.Equal(target) {
			lotsComplete = true
			break
		}
	}

	postings = append(postings,
		bean.NewPosting(imp.pnl),
		bean.NewPosting(imp.liquidityAccount(t.IBCommissionCurrency), bean.WithAmount(commission)),
		bean.NewPosting(imp.feesAccount(t.IBCommissionCurrency), bean.WithAmount(commission.Neg())),
	)

	opts := []bean.TransactionOption{
		bean.WithPayee(t.Symbol),
		bean.WithMeta(importer.MetaImportID, tradeImportID(t)),
		bean.WithMeta("isin", t.ISIN),
		bean.WithPostings(postings...),
	}
	if !lotsComplete {
		// Lot rows did not add up to the sold quantity; flag for review
		// instead of dropping the sale.
		opts = append(opts, bean.WithFlag("!"), bean.WithMeta("lots-incomplete", "true"))
	}
	return bean.NewTransaction(tradeDate(t), fmt.Sprintf("SELL %s @ %s", quantity, price), opts...)
}

// Dividend/withholding-tax matching. IBKR reports the dividend and its tax
// as separate cash rows; they are joined on symbol, per-share rate, and
// report date so the ledger shows one transaction per distribution.

var (
	perShareRate  = regexp.MustCompile(`([A-Z]{3}) ([\d.]+) PER SHARE`)
	isinInParens  = regexp.MustCompile(`\(([A-Z0-9]{12})\)`)
	feeMonth      = regexp.MustCompile(`\w{3} \d{4}`)
	interestMonth = regexp.MustCompile(`\w{3}-\d{4}`)
)

type divGroup struct {
	key     string
	divs    []*CashTransaction
	whts    []*CashTransaction
	rate    string
	isin    string
	symbol  string
	date    Date
	currf   string
	correct bool
}

func (imp *Importer) cashTransactions(rows []CashTransaction) ([]bean.Directive, error) {
	var directives []bean.Directive

	groups := make(map[string]*divGroup)
	var order []string

	for i := range rows {
		ct := &rows[i]
		switch {
		case ct.IsDividend() || ct.Type == CashWithholdingTax:
			rate := ""
			if m := perShareRate.FindStringSubmatch(ct.Description); m != nil {
				rate = m[2]
			}
			key := fmt.Sprintf("%s_%s_%s", ct.Symbol, rate, ct.ReportDate.Format("2006-01-02"))
			g, ok := groups[key]
			if !ok {
				g = &divGroup{key: key, symbol: ct.Symbol, rate: rate, date: ct.ReportDate, currf: ct.Currency}
				if m := isinInParens.FindStringSubmatch(ct.Description); m != nil {
					g.isin = m[1]
				}
				if ct.ISIN != "" {
					g.isin = ct.ISIN
				}
				groups[key] = g
				order = append(order, key)
			}
			if strings.Contains(strings.ToUpper(ct.Description), "CORRECTION") {
				g.correct = true
			}
			if ct.IsDividend() {
				g.divs = append(g.divs, ct)
			} else {
				g.whts = append(g.whts, ct)
			}

		case ct.Type == CashDeposit:
			if imp.deposit == "" {
				continue
			}
			amt := bean.NewAmount(ct.Amount.Decimal, ct.Currency)
			directives = append(directives, bean.NewTransaction(
				bean.NewDateFromTime(ct.ReportDate.Time), "deposit / withdrawal",
				bean.WithPayee("self"),
				bean.WithMeta(importer.MetaImportID, ct.TransactionID),
				bean.WithPostings(
					bean.NewPosting(imp.deposit, bean.WithAmount(amt.Neg())),
					bean.NewPosting(imp.liquidityAccount(ct.Currency), bean.WithAmount(amt)),
				),
			))

		case ct.IsInterest():
			month := interestMonth.FindString(ct.Description)
			amt := bean.NewAmount(ct.Amount.Decimal, ct.Currency)
			directives = append(directives, bean.NewTransaction(
				bean.NewDateFromTime(ct.ReportDate.Time),
				strings.TrimSpace(strings.Join([]string{"Interest", ct.Currency, month}, " ")),
				bean.WithPayee("IB"),
				bean.WithMeta(importer.MetaImportID, ct.TransactionID),
				bean.WithPostings(
					bean.NewPosting(imp.interestAccount(ct.Currency), bean.WithAmount(amt.Neg())),
					bean.NewPosting(imp.liquidityAccount(ct.Currency), bean.WithAmount(amt)),
				),
			))

		case ct.Type == CashFees:
			month := feeMonth.FindString(ct.Description)
			amt := bean.NewAmount(ct.Amount.Decimal, ct.Currency)
			directives = append(directives, bean.NewTransaction(
				bean.NewDateFromTime(ct.ReportDate.Time),
				strings.TrimSpace(strings.Join([]string{"Fee", ct.Currency, month}, " ")),
				bean.WithPayee("IB"),
				bean.WithMeta(importer.MetaImportID, ct.TransactionID),
				bean.WithPostings(
					bean.NewPosting(imp.feesAccount(ct.Currency), bean.WithAmount(amt.Neg())),
					bean.NewPosting(imp.liquidityAccount(ct.Currency), bean.WithAmount(amt)),
				),
			))
		}
	}

	for _, key := range order {
		directives = append(directives, imp.dividendGroup(groups[key])...)
	}
	return directives, nil
}

// dividendGroup emits one transaction for a matched dividend/tax pair, or
// individual flagged transactions when one side is missing (it may arrive
// in the next report).
func (imp *Importer) dividendGroup(g *divGroup) []bean.Directive {
	if len(g.divs) == 0 || len(g.whts) == 0 {
		var directives []bean.Directive
		for _, ct := range g.divs {
			directives = append(directives, imp.singleDividend(ct, g))
		}
		for _, ct := range g.whts {
			directives = append(directives, imp.singleWHT(ct, g))
		}
		return directives
	}

	totalDiv := decimal.Zero
	for _, ct := range g.divs {
		totalDiv = totalDiv.Add(ct.Amount.Decimal)
	}
	totalWHT := decimal.Zero
	for _, ct := range g.whts {
		totalWHT = totalWHT.Add(ct.Amount.Decimal)
	}

	narration := fmt.Sprintf("Dividend %s", g.symbol)
	if g.rate != "" {
		narration = fmt.Sprintf("Dividend %s (%s per share)", g.symbol, g.rate)
	}
	if g.correct {
		narration += " - Correction"
	}

	return []bean.Directive{bean.NewTransaction(
		bean.NewDateFromTime(g.date.Time), narration,
		bean.WithPayee(g.symbol),
		bean.WithMeta(importer.MetaImportID, "div-"+g.key),
		bean.WithMeta("isin", g.isin),
		bean.WithMeta("dividend-rate", g.rate),
		bean.WithPostings(
			bean.NewPosting(imp.divIncomeAccount(g.currf),
				bean.WithAmount(bean.NewAmount(totalDiv.Neg(), g.currf))),
			bean.NewPosting(imp.wht,
				bean.WithAmount(bean.NewAmount(totalWHT.Neg(), g.currf))),
			bean.NewPosting(imp.liquidityAccount(g.currf),
				bean.WithAmount(bean.NewAmount(totalDiv.Add(totalWHT), g.currf))),
		),
	)}
}

func (imp *Importer) singleDividend(ct *CashTransaction, g *divGroup) *bean.Transaction {
	amt := bean.NewAmount(ct.Amount.Decimal, ct.Currency)
	return bean.NewTransaction(bean.NewDateFromTime(ct.ReportDate.Time),
		fmt.Sprintf("Dividend %s (awaiting WHT)", ct.Symbol),
		bean.WithPayee(ct.Symbol),
		bean.WithMeta(importer.MetaImportID, ct.TransactionID),
		bean.WithMeta("isin", g.isin),
		bean.WithMeta("awaiting-wht", "true"),
		bean.WithPostings(
			bean.NewPosting(imp.divIncomeAccount(ct.Currency), bean.WithAmount(amt.Neg())),
			bean.NewPosting(imp.liquidityAccount(ct.Currency), bean.WithAmount(amt)),
		),
	)
}

func (imp *Importer) singleWHT(ct *CashTransaction, g *divGroup) *bean.Transaction {
	amt := bean.NewAmount(ct.Amount.Decimal, ct.Currency)
	return bean.NewTransaction(bean.NewDateFromTime(ct.ReportDate.Time),
		fmt.Sprintf("WHT %s (awaiting dividend)", ct.Symbol),
		bean.WithPayee(ct.Symbol),
		bean.WithMeta(importer.MetaImportID, ct.TransactionID),
		bean.WithMeta("isin", g.isin),
		bean.WithMeta("awaiting-dividend", "true"),
		bean.WithPostings(
			bean.NewPosting(imp.wht, bean.WithAmount(amt.Neg())),
			bean.NewPosting(imp.liquidityAccount(ct.Currency), bean.WithAmount(amt)),
		),
	)
}

var splitRatio = regexp.MustCompile(`SPLIT (\d+) FOR (\d+)`)

// corporateActions maps forward stock splits: the new shares arrive at zero
// cost and beancount adjusts the basis.
func (imp *Importer) corporateActions(actions []CorporateAction) []bean.Directive {
	var directives []bean.Directive
	for i := range actions {
		ca := &actions[i]
		if !strings.Contains(strings.ToUpper(ca.Type), "FS") &&
			!strings.Contains(strings.ToUpper(ca.Type), "FORWARDSPLIT") {
			continue
		}

		ratio := "unknown"
		if m := splitRatio.FindStringSubmatch(ca.ActionDescription); m != nil {
			ratio = m[1] + ":" + m[2]
		}

		date := bean.NewDateFromTime(ca.ReportDate.Time)
		if !ca.DateTime.IsZero() {
			date = bean.NewDateFromTime(ca.DateTime.Time)
		}
		zero := bean.NewAmount(decimal.Zero, ca.Currency)

		directives = append(directives, bean.NewTransaction(date,
			fmt.Sprintf("Stock split %s (%s)", ca.Symbol, ratio),
			bean.WithPayee(ca.Symbol),
			bean.WithMeta("isin", ca.ISIN),
			bean.WithMeta("split-ratio", ratio),
			bean.WithPostings(
				bean.NewPosting(imp.assetAccount(ca.Symbol),
					bean.WithAmount(bean.NewAmount(ca.Quantity.Decimal, ca.Symbol)),
					bean.WithCost(bean.Cost{PerUnit: &zero, Date: &date})),
			),
		))
	}
	return directives
}

// balances turns the cash report into balance assertions dated the day
// after the report period.
func (imp *Importer) balances(report []CashReportEntry) []bean.Directive {
	var directives []bean.Directive
	for i := range report {
		cr := &report[i]
		if cr.Currency == "BASE_SUMMARY" {
			continue
		}
		directives = append(directives, bean.NewBalance(
			bean.NewDateFromTime(cr.ToDate.Time).AddDays(1),
			imp.liquidityAccount(cr.Currency),
			bean.NewAmount(cr.EndingCash.Round(2), cr.Currency),
		))
	}
	return directives
}

func tradeDate(t *Trade) bean.Date {
	if !t.DateTime.IsZero() {
		return bean.NewDateFromTime(t.DateTime.Time)
	}
	return bean.NewDateFromTime(t.TradeDate.Time)
}

func tradeImportID(t *Trade) string {
	if t.TransactionID != "" {
		return t.TransactionID
	}
	return t.TradeID
}
