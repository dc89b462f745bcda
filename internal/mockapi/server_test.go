package mockapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hafizbahtiar/console/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type wrappedAuth struct {
	Success bool               `json:"success"`
	Data    model.AuthResponse `json:"data"`
}

func login(t *testing.T, srv *Server, email, password string) model.AuthResponse {
	t.Helper()
	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp wrappedAuth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestAuthFlow(t *testing.T) {
	srv := New(Options{})
	_, err := srv.Auth.Seed(model.User{Email: "Owner@Example.com", Role: model.RoleOwner}, "password123")
	require.NoError(t, err)

	resp := login(t, srv, "owner@example.com", "password123")
	require.True(t, resp.Tokens().Complete())
	require.NotNil(t, resp.User)
	assert.Equal(t, "owner@example.com", resp.User.Email)

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/auth/me", resp.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.True(t, me.IsOwner())

	t.Run("refresh rotates", func(t *testing.T) {
		w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/auth/refresh", "", model.RefreshRequest{RefreshToken: resp.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)
		var next model.AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &next))
		assert.NotEmpty(t, next.AccessToken)
		assert.Nil(t, next.User)

		w = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/auth/refresh", "", model.RefreshRequest{RefreshToken: resp.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Email: "owner@example.com", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var e model.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
		assert.Equal(t, "invalid credentials", e.Text())
	})

	t.Run("me without token", func(t *testing.T) {
		w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRegisterConflict(t *testing.T) {
	srv := New(Options{})
	req := model.RegisterRequest{Email: "a@b.com", Password: "password123", Username: "ab"}

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/auth/register", "", req)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/auth/register", "", req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFailInjection(t *testing.T) {
	srv := New(Options{})
	srv.Fail(http.MethodGet, "/ping", http.StatusServiceUnavailable, 2)

	for i := 0; i < 2; i++ {
		w := doJSON(t, srv.Handler(), http.MethodGet, "/ping", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	}
	w := doJSON(t, srv.Handler(), http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, srv.Calls(http.MethodGet, "/ping"))
}

func TestTransactionsPagination(t *testing.T) {
	srv := New(Options{})
	_, err := srv.Auth.Seed(model.User{Email: "u@example.com"}, "password123")
	require.NoError(t, err)
	token := login(t, srv, "u@example.com", "password123").AccessToken

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		srv.AddTransactions(model.Transaction{
			Type:   model.TransactionExpense,
			Amount: decimal.NewFromInt(int64(i + 1)),
			Date:   base.AddDate(0, 0, i),
		})
	}

	w := doJSON(t, srv.Handler(), http.MethodGet, "/api/v1/finance/transactions?page=2&limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page model.Page[model.Transaction]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))

	assert.Len(t, page.Data, 2)
	assert.Equal(t, 5, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPreviousPage)
	// newest first
	assert.True(t, page.Data[0].Amount.Equal(decimal.NewFromInt(3)))
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := New(Options{})
	_, err := srv.Auth.Seed(model.User{Email: "u@example.com"}, "password123")
	require.NoError(t, err)
	token := login(t, srv, "u@example.com", "password123").AccessToken

	w := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/finance/transactions", token, map[string]any{"type": "gift", "amount": "0"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var e model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "type must be income or expense, amount must be positive", e.Text())
	assert.Equal(t, "VALIDATION_ERROR", e.ErrorCode)
}
