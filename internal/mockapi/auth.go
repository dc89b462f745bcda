package mockapi

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hafizbahtiar/console/internal/model"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

type account struct {
	user         model.User
	passwordHash []byte
}

type refreshRecord struct {
	userID    string
	expiresAt time.Time
	revoked   bool
}

// AuthService issues and validates credentials for the mock backend. Access
// tokens are HS256 JWTs; refresh tokens are random and stored hashed.
type AuthService struct {
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu       sync.Mutex
	accounts map[string]*account // by email
	refresh  map[string]*refreshRecord
}

type authClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(secret string, accessTTL, refreshTTL time.Duration) *AuthService {
	if secret == "" {
		secret = "mock-secret"
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		jwtSecret:  []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		accounts:   make(map[string]*account),
		refresh:    make(map[string]*refreshRecord),
	}
}

// Seed adds an account directly, e.g. the owner of the console.
func (s *AuthService) Seed(user model.User, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = "user"
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	user.Email = email

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[email]; ok {
		return nil, ErrConflict
	}
	s.accounts[email] = &account{user: user, passwordHash: hash}
	u := user
	return &u, nil
}

func (s *AuthService) Register(req model.RegisterRequest) (model.AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || len(req.Password) < 8 {
		return model.AuthResponse{}, ErrInvalidInput
	}
	user, err := s.Seed(model.User{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}
	return s.issueTokens(*user)
}

func (s *AuthService) Login(email, password string) (model.AuthResponse, error) {
	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	s.mu.Unlock()
	if !ok {
		return model.AuthResponse{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return model.AuthResponse{}, ErrUnauthorized
	}
	return s.issueTokens(acc.user)
}

// Refresh rotates the refresh token: the presented one is revoked.
func (s *AuthService) Refresh(refreshToken string) (model.AuthResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return model.AuthResponse{}, ErrUnauthorized
	}

	s.mu.Lock()
	record, ok := s.refresh[hashRefreshToken(refreshToken)]
	if !ok || record.revoked || time.Now().After(record.expiresAt) {
		s.mu.Unlock()
		return model.AuthResponse{}, ErrUnauthorized
	}
	record.revoked = true
	user, found := s.userByIDLocked(record.userID)
	s.mu.Unlock()

	if !found {
		return model.AuthResponse{}, ErrUnauthorized
	}
	resp, err := s.issueTokens(user)
	resp.User = nil
	return resp, err
}

func (s *AuthService) Logout(refreshToken string) {
	if refreshToken == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.refresh[hashRefreshToken(refreshToken)]; ok {
		record.revoked = true
	}
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*model.User, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.userByIDLocked(claims.Subject)
	if !ok {
		return nil, ErrUnauthorized
	}
	return &user, nil
}

func (s *AuthService) UpdateUser(id string, fn func(u *model.User)) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			fn(&acc.user)
			u := acc.user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *AuthService) DeleteUser(id, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, acc := range s.accounts {
		if acc.user.ID != id {
			continue
		}
		if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
			return ErrForbidden
		}
		delete(s.accounts, email)
		return nil
	}
	return ErrNotFound
}

func (s *AuthService) userByIDLocked(id string) (model.User, bool) {
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user, true
		}
	}
	return model.User{}, false
}

func (s *AuthService) issueTokens(user model.User) (model.AuthResponse, error) {
	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return model.AuthResponse{}, err
	}

	refreshToken, refreshHash, err := newRefreshToken()
	if err != nil {
		return model.AuthResponse{}, err
	}

	s.mu.Lock()
	s.refresh[refreshHash] = &refreshRecord{userID: user.ID, expiresAt: time.Now().Add(s.refreshTTL)}
	s.mu.Unlock()

	u := user
	return model.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
		User:         &u,
	}, nil
}

func (s *AuthService) generateAccessToken(user model.User) (string, int64, error) {
	now := time.Now()
	claims := authClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, fmt.Errorf("sign access token: %w", err)
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

func newRefreshToken() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
