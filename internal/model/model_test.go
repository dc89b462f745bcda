package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponseText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "string message", raw: `{"message":"boom","statusCode":404}`, want: "boom"},
		{name: "validation list", raw: `{"message":["email must be an email","password too short"]}`, want: "email must be an email, password too short"},
		{name: "error fallback", raw: `{"error":"Not Found"}`, want: "Not Found"},
		{name: "empty", raw: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &resp))
			assert.Equal(t, tt.want, resp.Text())
		})
	}
}

func TestUserHelpers(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsOwner())
	assert.Equal(t, "", nilUser.DisplayName())

	u := &User{Email: "a@b.com", Role: RoleOwner}
	assert.True(t, u.IsOwner())
	assert.Equal(t, "a@b.com", u.DisplayName())

	u.Username = "hafiz"
	assert.Equal(t, "hafiz", u.DisplayName())

	u.FirstName, u.LastName = "Hafiz", "Bahtiar"
	assert.Equal(t, "Hafiz Bahtiar", u.DisplayName())
}

func TestTokenPairComplete(t *testing.T) {
	assert.True(t, TokenPair{AccessToken: "a", RefreshToken: "r"}.Complete())
	assert.False(t, TokenPair{AccessToken: "a"}.Complete())
	assert.False(t, TokenPair{}.Complete())
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatAmount(decimal.RequireFromString("1234.5"), "USD"))
	assert.Equal(t, "12.30 XYZ", FormatAmount(decimal.RequireFromString("12.3"), "XYZ"))
}

func TestTotalsAndSigned(t *testing.T) {
	txs := []Transaction{
		{Type: TransactionIncome, Amount: decimal.NewFromInt(100)},
		{Type: TransactionExpense, Amount: decimal.NewFromInt(30)},
		{Type: TransactionExpense, Amount: decimal.NewFromInt(-20)},
	}

	income, expense := Totals(txs)
	assert.True(t, income.Equal(decimal.NewFromInt(100)))
	assert.True(t, expense.Equal(decimal.NewFromInt(50)))
	assert.True(t, txs[1].Signed().Equal(decimal.NewFromInt(-30)))
	assert.True(t, txs[2].Signed().Equal(decimal.NewFromInt(-20)))
}

func TestTransactionAmountDecodesNumberOrString(t *testing.T) {
	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","type":"expense","amount":"12.75","date":"2026-01-02T00:00:00Z"}`), &tx))
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("12.75")))

	require.NoError(t, json.Unmarshal([]byte(`{"id":"t2","type":"income","amount":40.1,"date":"2026-01-02T00:00:00Z"}`), &tx))
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("40.1")))
}
