package bean

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestNewAccount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "assets account", input: "Assets:Invest:IB:VT"},
		{name: "expenses account", input: "Expenses:Fees"},
		{name: "segment with digits and hyphens", input: "Assets:Cash:Portfolio-1"},
		{name: "segment starting with digit", input: "Assets:2ndPillar"},
		{name: "segment with non-ASCII letters", input: "Assets:Goals:Über-alles"},
		{name: "error: single segment", input: "Assets", wantErr: true},
		{name: "error: unknown root type", input: "Asset:Checking", wantErr: true},
		{name: "error: lowercase segment", input: "Assets:checking", wantErr: true},
		{name: "error: empty segment", input: "Assets::Checking", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := NewAccount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.input, string(account))
		})
	}
}

func TestAccount_Sub(t *testing.T) {
	account := MustAccount("Assets:Invest:IB")

	assert.Equal(t, Account("Assets:Invest:IB:VT"), account.Sub("VT"))
	assert.Equal(t, Account("Assets:Invest:IB:Main:USD"), account.Sub("Main", "USD"))

	// Empty segments are skipped so an absent alias collapses cleanly.
	assert.Equal(t, Account("Assets:Invest:IB:USD"), account.Sub("", "USD"))
}

// TestAccount_SubSanitizes covers free-text segments: every derived account
// must pass NewAccount's validation.
func TestAccount_SubSanitizes(t *testing.T) {
	goals := MustAccount("Assets:Goals")

	tests := []struct {
		segment string
		want    Account
	}{
		{"summer trip", "Assets:Goals:Summer-trip"},
		{"über alles", "Assets:Goals:Über-alles"},
		{"Taxes (20%)", "Assets:Goals:Taxes--20--"},
		{"--Fees", "Assets:Goals:Fees"},
		{"---", "Assets:Goals"},
	}
	for _, tt := range tests {
		derived := tt.want
		assert.Equal(t, derived, goals.Sub(tt.segment))
		_, err := NewAccount(string(derived))
		assert.NoError(t, err)
	}
}

func TestAccount_ReplaceSegment(t *testing.T) {
	account := MustAccount("Assets:Stocks:IB")

	assert.Equal(t, Account("Assets:Cash:IB"), account.ReplaceSegment("Stocks", "Cash"))
	// No matching segment leaves the account untouched.
	assert.Equal(t, account, account.ReplaceSegment("Bonds", "Cash"))
}

func TestParseAmount(t *testing.T) {
	amt, err := ParseAmount("100.00", "CHF")
	assert.NoError(t, err)
	assert.Equal(t, "100 CHF", amt.String())
	assert.Equal(t, "-100 CHF", amt.Neg().String())

	_, err = ParseAmount("not-a-number", "CHF")
	assert.Error(t, err)
}

func TestDate(t *testing.T) {
	d := MustDate("2023-04-01")
	assert.Equal(t, "2023-04-01", d.String())
	assert.Equal(t, "2023-04-02", d.AddDays(1).String())

	_, err := NewDate("01/04/2023")
	assert.Error(t, err)
}

func TestTransaction_Meta(t *testing.T) {
	txn := NewTransaction(MustDate("2023-04-01"), "test",
		WithMeta("import-id", "T123"),
		WithMeta("empty", ""),
	)

	assert.Equal(t, "T123", txn.Meta("import-id"))
	// Empty values are dropped at construction.
	assert.Equal(t, "", txn.Meta("empty"))
	assert.Equal(t, "", txn.Meta("missing"))
}
