package ibkr

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the Flex Web Service endpoint.
const DefaultBaseURL = "https://ndcdyn.interactivebrokers.com/AccountManagement/FlexWebService"

// flexAPIVersion is the Flex Web Service protocol version.
const flexAPIVersion = "3"

// ResponseCodeError is a Flex Web Service error reply. Code "1018" means the
// statement is still being generated and a later request will succeed;
// everything else indicates bad credentials or a misconfigured query.
type ResponseCodeError struct {
	Code    string
	Message string
}

func (e *ResponseCodeError) Error() string {
	return fmt.Sprintf("flex web service error %s: %s", e.Code, e.Message)
}

// Retryable reports whether the error is the transport saying "try again
// later" (statement generation in progress).
func (e *ResponseCodeError) Retryable() bool {
	return e.Code == "1018" || e.Code == "1019"
}

// Client downloads FlexQuery reports through the two-step Flex Web Service
// protocol: SendRequest hands in the query and returns a reference code plus
// the statement URL, GetStatement fetches the generated report.
type Client struct {
	// HTTPClient is the transport; nil selects http.DefaultClient.
	// Timeouts and cancellation live entirely on this client and the
	// request context.
	HTTPClient *http.Client
	// BaseURL overrides the service endpoint, for tests.
	BaseURL string
}

// sendResponse is the XML reply of both SendRequest and a failed
// GetStatement.
type sendResponse struct {
	XMLName       xml.Name `xml:"FlexStatementResponse"`
	Status        string   `xml:"Status"`
	ReferenceCode string   `xml:"ReferenceCode"`
	URL           string   `xml:"Url"`
	ErrorCode     string   `xml:"ErrorCode"`
	ErrorMessage  string   `xml:"ErrorMessage"`
}

// Download fetches the FlexQuery report for the given token and query id
// and returns the raw report XML.
func (c *Client) Download(ctx context.Context, token, queryID string) ([]byte, error) {
	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	sendURL := fmt.Sprintf("%s/SendRequest?%s", base, url.Values{
		"t": {token},
		"q": {queryID},
		"v": {flexAPIVersion},
	}.Encode())

	body, err := c.get(ctx, sendURL)
	if err != nil {
		return nil, err
	}

	var send sendResponse
	if err := xml.Unmarshal(body, &send); err != nil {
		return nil, fmt.Errorf("unexpected SendRequest reply: %w", err)
	}
	if send.Status != "Success" {
		return nil, &ResponseCodeError{Code: send.ErrorCode, Message: send.ErrorMessage}
	}

	stmtURL := fmt.Sprintf("%s?%s", send.URL, url.Values{
		"t": {token},
		"q": {send.ReferenceCode},
		"v": {flexAPIVersion},
	}.Encode())

	report, err := c.get(ctx, stmtURL)
	if err != nil {
		return nil, err
	}

	// A statement that is not ready (or a stale reference code) comes back
	// as another FlexStatementResponse instead of the report.
	if strings.Contains(string(report[:min(len(report), 512)]), "FlexStatementResponse") {
		var status sendResponse
		if err := xml.Unmarshal(report, &status); err == nil && status.Status != "Success" {
			return nil, &ResponseCodeError{Code: status.ErrorCode, Message: status.ErrorMessage}
		}
	}
	return report, nil
}

func (c *Client) get(ctx context.Context, addr string) ([]byte, error) {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flex web service: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
