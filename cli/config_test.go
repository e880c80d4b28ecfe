package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beanport.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
dedup_db: state/dedup.db
importers:
  revolut:
    - account: Assets:Cash:Revolut:CHF
      counterpart: Expenses:ToBeClassified
      currency: CHF
    - account: Assets:Cash:Revolut:EUR
      counterpart: Expenses:ToBeClassified
      currency: EUR
  ibkr:
    - main_account: Assets:Stocks:IB
      div_account: Income:Dividends:IB
      wht_account: Expenses:Stocks:IB:WHT
      pnl_account: Income:Stocks:IB:PnL
      fees_account: Expenses:Stocks:IB:Fees
prices:
  ibkr:
    credentials_file: ibkr.yaml
`)

	cfg, importers, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "state/dedup.db", cfg.DedupDB)
	assert.Equal(t, "ibkr.yaml", cfg.Prices.IBKR.CredentialsFile)
	assert.Equal(t, 3, len(importers))

	// The two Revolut instances claim their own exports.
	imp := identifyImporter(importers, "exports/revolut_2023.csv")
	assert.NotZero(t, imp)
	assert.Equal(t, "Assets:Cash:Revolut:CHF", string(imp.Account()))

	assert.Zero(t, identifyImporter(importers, "exports/unknown.csv"))
}

func TestLoadConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, `
importers:
  revolut:
    - account: Assets:Cash:Revolut:CHF
      counterpart: Expenses:ToBeClassified
      currency: CHF
      acount_typo: x
`)

	_, _, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidAccount(t *testing.T) {
	path := writeConfig(t, `
importers:
  revolut:
    - account: lowercase:account
      counterpart: Expenses:ToBeClassified
      currency: CHF
`)

	_, _, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
