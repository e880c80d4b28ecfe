package prices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mekanics/beanport/bean"
	"github.com/mekanics/beanport/importer/ibkr"
)

// IBKRSource reads mark prices from the OpenPositions section of an IBKR
// FlexQuery report. The report is downloaded once and answers every ticker
// of the run from the cached positions.
type IBKRSource struct {
	Credentials ibkr.Credentials
	Client      *ibkr.Client

	once      sync.Once
	positions map[string]ibkr.OpenPosition
	loadErr   error
}

// NewIBKRSource creates a price source for the given Flex credentials.
func NewIBKRSource(creds ibkr.Credentials) *IBKRSource {
	return &IBKRSource{Credentials: creds, Client: &ibkr.Client{}}
}

func (s *IBKRSource) Name() string { return "ibkr" }

// LatestPrice looks the ticker up in the report's open positions. A single
// trailing "z" marker on the ticker is stripped; it is the beancount-side
// convention for commodities whose raw symbol starts with a digit.
func (s *IBKRSource) LatestPrice(ctx context.Context, ticker string) (*Price, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	symbol := strings.TrimSuffix(ticker, "z")
	pos, ok := s.positions[symbol]
	if !ok {
		return nil, &UnavailableError{Source: s.Name(), Ticker: ticker}
	}
	return &Price{
		Instrument: ticker,
		Date:       bean.NewDateFromTime(pos.ReportDate.Time),
		Value:      pos.MarkPrice.Decimal,
		Currency:   pos.Currency,
	}, nil
}

func (s *IBKRSource) load(ctx context.Context) error {
	s.once.Do(func() {
		report, err := s.download(ctx)
		if err != nil {
			s.loadErr = err
			return
		}
		resp, err := ibkr.Parse(report)
		if err != nil {
			s.loadErr = fmt.Errorf("ibkr prices: %w", err)
			return
		}
		s.positions = make(map[string]ibkr.OpenPosition)
		for _, stmt := range resp.Statements {
			for _, pos := range stmt.OpenPositions {
				s.positions[pos.Symbol] = pos
			}
		}
	})
	return s.loadErr
}

// download fetches the report, retrying once when the service answers with
// a retryable code (statement still generating).
func (s *IBKRSource) download(ctx context.Context) ([]byte, error) {
	report, err := s.Client.Download(ctx, s.Credentials.Token, s.Credentials.QueryID)
	if err == nil {
		return report, nil
	}
	var rcErr *ibkr.ResponseCodeError
	if errors.As(err, &rcErr) && rcErr.Retryable() {
		return s.Client.Download(ctx, s.Credentials.Token, s.Credentials.QueryID)
	}
	return nil, err
}

// SetPositions preloads the position cache without downloading, for tests
// and for reuse of an already fetched report.
func (s *IBKRSource) SetPositions(positions []ibkr.OpenPosition) {
	s.once.Do(func() {})
	s.positions = make(map[string]ibkr.OpenPosition)
	s.loadErr = nil
	for _, pos := range positions {
		s.positions[pos.Symbol] = pos
	}
}
