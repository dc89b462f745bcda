// Package mockapi is an in-process stand-in for the console REST backend.
//
// It speaks the same wire contract as the real service: auth endpoints under
// /api/v1/auth, a bearer-protected /users/me and a small finance area. It
// counts calls per route and can be told to fail the next N calls of a route,
// which is how the client and session tests drive refresh and error paths.
// `console mock-api` serves it for local development.
package mockapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/shopspring/decimal"
)

const authUserKey = "auth_user"

type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type fault struct {
	status    int
	remaining int
}

type Server struct {
	Auth *AuthService

	engine *gin.Engine

	mu         sync.Mutex
	calls      map[string]int
	faults     map[string]*fault
	txs        []model.Transaction
	categories []model.Category
	receipts   []model.Receipt
}

func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		Auth:   NewAuthService(opts.Secret, opts.AccessTTL, opts.RefreshTTL),
		engine: gin.New(),
		calls:  make(map[string]int),
		faults: make(map[string]*fault),
		categories: []model.Category{
			{ID: "cat-food", Name: "Food", Type: model.TransactionExpense, Color: "#f97316"},
			{ID: "cat-salary", Name: "Salary", Type: model.TransactionIncome, Color: "#22c55e"},
		},
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Calls returns how many requests reached "METHOD /path".
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method+" "+path]
}

// Fail makes the next times calls to "METHOD /path" answer with status.
func (s *Server) Fail(method, path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = &fault{status: status, remaining: times}
}

// AddTransactions seeds the finance store.
func (s *Server) AddTransactions(txs ...model.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		s.txs = append(s.txs, tx)
	}
}

func (s *Server) routes() {
	r := s.engine
	r.Use(s.record)

	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, model.PingResponse{Message: "pong"}) })

	v1 := r.Group("/api/v1")
	auth := v1.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refresh)
	auth.POST("/forgot-password", s.accepted)
	auth.POST("/reset-password", s.accepted)
	auth.POST("/verify-email", s.accepted)
	auth.POST("/resend-verification", s.accepted)

	protected := v1.Group("")
	protected.Use(s.requireUser)
	protected.POST("/auth/logout", s.logout)
	protected.GET("/auth/me", s.me)
	protected.PATCH("/users/me", s.updateProfile)
	protected.POST("/users/me/avatar", s.uploadAvatar)
	protected.PATCH("/users/me/password", s.accepted)
	protected.DELETE("/users/me", s.deleteAccount)

	finance := protected.Group("/finance")
	finance.GET("/transactions", s.listTransactions)
	finance.POST("/transactions", s.createTransaction)
	finance.GET("/transactions/:id", s.getTransaction)
	finance.DELETE("/transactions/:id", s.deleteTransaction)
	finance.GET("/categories", s.listCategories)
	finance.POST("/receipts", s.uploadReceipt)
}

func (s *Server) record(c *gin.Context) {
	key := c.Request.Method + " " + c.Request.URL.Path

	s.mu.Lock()
	s.calls[key]++
	status := 0
	if f, ok := s.faults[key]; ok && f.remaining > 0 {
		f.remaining--
		status = f.status
		if f.remaining == 0 {
			delete(s.faults, key)
		}
	}
	s.mu.Unlock()

	if status != 0 {
		writeError(c, status, http.StatusText(status))
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) requireUser(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(c, http.StatusUnauthorized, "unauthorized")
		c.Abort()
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	user, err := s.Auth.ParseAccessToken(token)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "unauthorized")
		c.Abort()
		return
	}
	c.Set(authUserKey, user)
	c.Next()
}

func authUser(c *gin.Context) *model.User {
	if v, ok := c.Get(authUserKey); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// register
// @Router /api/v1/auth/register [post]
func (s *Server) register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request")
		return
	}
	resp, err := s.Auth.Register(req)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": resp})
}

// login
// @Router /api/v1/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request")
		return
	}
	resp, err := s.Auth.Login(req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": resp})
}

// refresh answers with the bare payload, unlike login.
// @Router /api/v1/auth/refresh [post]
func (s *Server) refresh(c *gin.Context) {
	var req model.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	resp, err := s.Auth.Refresh(req.RefreshToken)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Router /api/v1/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	var req model.LogoutRequest
	_ = c.ShouldBindJSON(&req)
	s.Auth.Logout(req.RefreshToken)
	c.JSON(http.StatusOK, model.StatusResponse{Status: "logged_out"})
}

// me answers with the bare user.
// @Router /api/v1/auth/me [get]
func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, authUser(c))
}

func (s *Server) accepted(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "ok"})
}

func (s *Server) updateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request")
		return
	}
	user, err := s.Auth.UpdateUser(authUser(c).ID, func(u *model.User) {
		if req.FirstName != "" {
			u.FirstName = req.FirstName
		}
		if req.LastName != "" {
			u.LastName = req.LastName
		}
		if req.Username != "" {
			u.Username = req.Username
		}
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (s *Server) uploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		writeError(c, http.StatusBadRequest, "avatar file is required")
		return
	}
	user, err := s.Auth.UpdateUser(authUser(c).ID, func(u *model.User) {
		u.AvatarURL = "/uploads/avatars/" + fh.Filename
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": user})
}

func (s *Server) deleteAccount(c *gin.Context) {
	var req model.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Confirmation != "DELETE" {
		writeError(c, http.StatusBadRequest, "confirmation required")
		return
	}
	if err := s.Auth.DeleteUser(authUser(c).ID, req.Password); err != nil {
		writeAuthError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTransactions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	txType := c.Query("type")
	category := c.Query("categoryId")

	s.mu.Lock()
	filtered := make([]model.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if txType != "" && string(tx.Type) != txType {
			continue
		}
		if category != "" && tx.CategoryID != category {
			continue
		}
		filtered = append(filtered, tx)
	}
	s.mu.Unlock()

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Date.After(filtered[j].Date) })

	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, model.Page[model.Transaction]{
		Data: filtered[start:end],
		Pagination: model.Pagination{
			Page:            page,
			Limit:           limit,
			Total:           total,
			TotalPages:      totalPages,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	})
}

func (s *Server) createTransaction(c *gin.Context) {
	var req model.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request")
		return
	}
	var problems []string
	if req.Type != model.TransactionIncome && req.Type != model.TransactionExpense {
		problems = append(problems, "type must be income or expense")
	}
	if !req.Amount.GreaterThan(decimal.Zero) {
		problems = append(problems, "amount must be positive")
	}
	if len(problems) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": problems, "statusCode": http.StatusBadRequest, "errorCode": "VALIDATION_ERROR"})
		return
	}
	tx := model.Transaction{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Merchant:    req.Merchant,
		Date:        req.Date,
	}
	s.AddTransactions(tx)
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tx})
}

func (s *Server) getTransaction(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ID == id {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": tx})
			return
		}
	}
	writeError(c, http.StatusNotFound, fmt.Sprintf("transaction %s not found", id))
}

func (s *Server) deleteTransaction(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.txs {
		if tx.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	writeError(c, http.StatusNotFound, fmt.Sprintf("transaction %s not found", id))
}

// listCategories answers with a bare array.
func (s *Server) listCategories(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.categories)
}

func (s *Server) uploadReceipt(c *gin.Context) {
	fh, err := c.FormFile("receipt")
	if err != nil {
		writeError(c, http.StatusBadRequest, "receipt file is required")
		return
	}
	rc := model.Receipt{
		ID:            uuid.NewString(),
		FileURL:       "/uploads/receipts/" + fh.Filename,
		OCRStatus:     "pending",
		TransactionID: c.PostForm("transactionId"),
	}
	s.mu.Lock()
	s.receipts = append(s.receipts, rc)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": rc})
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg, "statusCode": status})
}

func writeAuthError(c *gin.Context, err error) {
	switch err {
	case ErrInvalidInput:
		writeError(c, http.StatusBadRequest, "invalid input")
	case ErrUnauthorized:
		writeError(c, http.StatusUnauthorized, "invalid credentials")
	case ErrConflict:
		writeError(c, http.StatusConflict, "email already registered")
	case ErrForbidden:
		writeError(c, http.StatusForbidden, "password is incorrect")
	case ErrNotFound:
		writeError(c, http.StatusNotFound, "not found")
	default:
		writeError(c, http.StatusInternalServerError, "server error")
	}
}
