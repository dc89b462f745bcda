package model

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty"`
	Description string          `json:"description"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        time.Time       `json:"date"`
	ReceiptURL  string          `json:"receiptUrl,omitempty"`
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionExpense {
		return t.Amount.Abs().Neg()
	}
	return t.Amount.Abs()
}

type CreateTransactionRequest struct {
	Type        TransactionType `json:"type" validate:"required,oneof=income expense"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency,omitempty" validate:"omitempty,len=3"`
	Description string          `json:"description" validate:"max=255"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Merchant    string          `json:"merchant,omitempty"`
	Date        time.Time       `json:"date"`
}

type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  TransactionType `json:"type"`
	Color string          `json:"color,omitempty"`
	Icon  string          `json:"icon,omitempty"`
}

type Receipt struct {
	ID            string `json:"id"`
	FileURL       string `json:"fileUrl"`
	OCRStatus     string `json:"ocrStatus,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// FormatAmount renders amount in currency, e.g. "$1,234.50". Unknown currency
// codes fall back to the plain decimal with the code appended.
func FormatAmount(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

// Totals sums income and expense amounts across txs.
func Totals(txs []Transaction) (income, expense decimal.Decimal) {
	for _, tx := range txs {
		switch tx.Type {
		case TransactionIncome:
			income = income.Add(tx.Amount.Abs())
		case TransactionExpense:
			expense = expense.Add(tx.Amount.Abs())
		}
	}
	return income, expense
}
