package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinanceTransactions(t *testing.T) {
	h := newHarness(t)
	svc := NewFinanceService(h.c, "USD")
	ctx := context.Background()

	created, err := svc.CreateTransaction(ctx, model.CreateTransactionRequest{
		Type:        model.TransactionExpense,
		Amount:      decimal.RequireFromString("12.50"),
		Description: "lunch",
		CategoryID:  "cat-food",
		Date:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "USD", created.Currency)
	assert.True(t, created.Amount.Equal(decimal.RequireFromString("12.5")))

	_, err = svc.CreateTransaction(ctx, model.CreateTransactionRequest{
		Type:   model.TransactionIncome,
		Amount: decimal.NewFromInt(100),
		Date:   time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	page, err := svc.ListTransactions(ctx, TransactionFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.False(t, page.Pagination.HasNextPage)

	expenses, err := svc.ListTransactions(ctx, TransactionFilter{Type: model.TransactionExpense})
	require.NoError(t, err)
	require.Len(t, expenses.Data, 1)
	assert.Equal(t, "lunch", expenses.Data[0].Description)

	got, err := svc.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	sum := svc.Summarize(page.Data)
	assert.Equal(t, "$100.00", sum.Income)
	assert.Equal(t, "$12.50", sum.Expense)
	assert.Equal(t, "$87.50", sum.Net)
	assert.Equal(t, 2, sum.Count)

	require.NoError(t, svc.DeleteTransaction(ctx, created.ID))
	_, err = svc.GetTransaction(ctx, created.ID)
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestCreateTransactionValidation(t *testing.T) {
	h := newHarness(t)
	svc := NewFinanceService(h.c, "")
	ctx := context.Background()

	tests := []struct {
		name string
		req  model.CreateTransactionRequest
		want string
	}{
		{
			name: "bad type",
			req:  model.CreateTransactionRequest{Type: "gift", Amount: decimal.NewFromInt(1)},
			want: "type must be one of [income expense]",
		},
		{
			name: "zero amount",
			req:  model.CreateTransactionRequest{Type: model.TransactionIncome},
			want: "amount must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(ctx, tt.req)
			apiErr, ok := client.AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
	assert.Zero(t, h.api.Calls(http.MethodPost, "/api/v1/finance/transactions"))
}

func TestListCategoriesBareArray(t *testing.T) {
	h := newHarness(t)
	svc := NewFinanceService(h.c, "MYR")

	cats, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Food", cats[0].Name)
}

func TestUploadReceipt(t *testing.T) {
	h := newHarness(t)
	svc := NewFinanceService(h.c, "MYR")

	rc, err := svc.UploadReceipt(context.Background(), "march.jpg", strings.NewReader("jpeg bytes"), "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/receipts/march.jpg", rc.FileURL)
	assert.Equal(t, "tx-1", rc.TransactionID)
	assert.Equal(t, "pending", rc.OCRStatus)
}

func TestFinanceUnauthenticated(t *testing.T) {
	h := newHarness(t)
	h.sess.Logout(context.Background())
	svc := NewFinanceService(h.c, "MYR")

	_, err := svc.ListCategories(context.Background())
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsUnauthorized())
}
