package ibkr

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Credentials are the Flex Web Service credentials, conventionally kept in a
// small "ibkr.yaml" next to the ledger:
//
//	token: "1234567890123456789012345"
//	queryId: "123456"
//	baseCcy: "CHF"
type Credentials struct {
	Token   string `yaml:"token"`
	QueryID string `yaml:"queryId"`
	BaseCcy string `yaml:"baseCcy"`
}

// ParseCredentials decodes a credentials file.
func ParseCredentials(r io.Reader) (*Credentials, error) {
	var creds Credentials
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&creds); err != nil {
		return nil, fmt.Errorf("cannot decode IBKR credentials: %w", err)
	}
	if creds.Token == "" {
		return nil, fmt.Errorf("IBKR credentials: token is required")
	}
	if creds.QueryID == "" {
		return nil, fmt.Errorf("IBKR credentials: queryId is required")
	}
	return &creds, nil
}
