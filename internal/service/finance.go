package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/session"
	"github.com/shopspring/decimal"
)

const (
	pathTransactions = "/finance/transactions"
	pathCategories   = "/finance/categories"
	pathReceipts     = "/finance/receipts"
)

type FinanceService struct {
	api      *client.Client
	currency string
}

func NewFinanceService(api *client.Client, currency string) *FinanceService {
	if currency == "" {
		currency = "MYR"
	}
	return &FinanceService{api: api, currency: currency}
}

type TransactionFilter struct {
	Page       int
	Limit      int
	Type       model.TransactionType
	CategoryID string
	From       time.Time
	To         time.Time
}

func (f TransactionFilter) query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Type != "" {
		q.Set("type", string(f.Type))
	}
	if f.CategoryID != "" {
		q.Set("categoryId", f.CategoryID)
	}
	if !f.From.IsZero() {
		q.Set("startDate", f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		q.Set("endDate", f.To.Format(time.DateOnly))
	}
	return q
}

func (s *FinanceService) ListTransactions(ctx context.Context, filter TransactionFilter) (model.Page[model.Transaction], error) {
	return client.GetPage[model.Transaction](ctx, s.api, pathTransactions, filter.query())
}

func (s *FinanceService) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	return client.GetData[model.Transaction](ctx, s.api, pathTransactions+"/"+url.PathEscape(id))
}

// CreateTransaction validates locally before posting. Amount must be positive;
// the sign comes from Type.
func (s *FinanceService) CreateTransaction(ctx context.Context, req model.CreateTransactionRequest) (model.Transaction, error) {
	if err := session.Validate(req); err != nil {
		return model.Transaction{}, err
	}
	if !req.Amount.GreaterThan(decimal.Zero) {
		return model.Transaction{}, &client.APIError{
			StatusCode: http.StatusBadRequest,
			Message:    "amount must be positive",
			ErrorCode:  "VALIDATION_ERROR",
		}
	}
	if req.Currency == "" {
		req.Currency = s.currency
	}
	if req.Date.IsZero() {
		req.Date = time.Now().UTC()
	}
	return client.PostData[model.Transaction](ctx, s.api, pathTransactions, req)
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id string) error {
	return s.api.Delete(ctx, pathTransactions+"/"+url.PathEscape(id), nil, nil)
}

func (s *FinanceService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return client.GetData[[]model.Category](ctx, s.api, pathCategories)
}

// UploadReceipt sends the file as multipart form data, optionally linked to
// an existing transaction.
func (s *FinanceService) UploadReceipt(ctx context.Context, filename string, content io.Reader, transactionID string) (model.Receipt, error) {
	fields := map[string]string{}
	if transactionID != "" {
		fields["transactionId"] = transactionID
	}
	body, err := client.NewMultipart(fields, client.FilePart{
		Field:    "receipt",
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return model.Receipt{}, fmt.Errorf("build receipt upload: %w", err)
	}
	return client.PostData[model.Receipt](ctx, s.api, pathReceipts, body)
}

type Summary struct {
	Income  string
	Expense string
	Net     string
	Count   int
}

// Summarize formats totals for txs in the display currency.
func (s *FinanceService) Summarize(txs []model.Transaction) Summary {
	income, expense := model.Totals(txs)
	return Summary{
		Income:  model.FormatAmount(income, s.currency),
		Expense: model.FormatAmount(expense, s.currency),
		Net:     model.FormatAmount(income.Sub(expense), s.currency),
		Count:   len(txs),
	}
}

func (s *FinanceService) Format(amount decimal.Decimal) string {
	return model.FormatAmount(amount, s.currency)
}
