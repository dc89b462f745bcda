// Package tokens holds the access/refresh token pair.
//
// The store is the only component that persists credentials. All access to
// the underlying storage is best-effort: failures are logged and reads fall
// back to "no token".
package tokens

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/storage"
	"golang.org/x/oauth2"
)

// Storage keys. The route guard reads cookies with the same names.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

var ErrNoToken = errors.New("tokens: no access token")

type Store struct {
	storage storage.Storage
	log     *slog.Logger
}

func NewStore(s storage.Storage, log *slog.Logger) *Store {
	if s == nil {
		s = storage.Noop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{storage: s, log: log}
}

// SetTokens persists both halves of the pair. If the second write fails the
// first is rolled back so the store never keeps half a pair.
func (s *Store) SetTokens(access, refresh string) {
	ctx := context.Background()
	if err := s.storage.Set(ctx, AccessTokenKey, access); err != nil {
		s.log.Debug("token store write failed", "key", AccessTokenKey, "err", err)
		return
	}
	if err := s.storage.Set(ctx, RefreshTokenKey, refresh); err != nil {
		s.log.Debug("token store write failed", "key", RefreshTokenKey, "err", err)
		_ = s.storage.Delete(ctx, AccessTokenKey)
	}
}

// AccessToken returns "" when no token is set or storage is unavailable.
func (s *Store) AccessToken() string {
	return s.read(AccessTokenKey)
}

func (s *Store) RefreshToken() string {
	return s.read(RefreshTokenKey)
}

func (s *Store) Pair() model.TokenPair {
	return model.TokenPair{AccessToken: s.AccessToken(), RefreshToken: s.RefreshToken()}
}

func (s *Store) HasToken() bool {
	return s.AccessToken() != ""
}

// ClearTokens removes both values. Safe to call on an empty store.
func (s *Store) ClearTokens() {
	ctx := context.Background()
	for _, key := range []string{AccessTokenKey, RefreshTokenKey} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log.Debug("token store delete failed", "key", key, "err", err)
		}
	}
}

func (s *Store) read(key string) string {
	v, err := s.storage.Get(context.Background(), key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Debug("token store read failed", "key", key, "err", err)
		}
		return ""
	}
	return v
}

// TokenSource exposes the current access token to oauth2-aware HTTP clients.
// It reads the store on every call, so a refreshed pair is picked up at once.
func (s *Store) TokenSource() oauth2.TokenSource {
	return storeSource{s}
}

type storeSource struct{ s *Store }

func (src storeSource) Token() (*oauth2.Token, error) {
	pair := src.s.Pair()
	if pair.AccessToken == "" {
		return nil, ErrNoToken
	}
	tok := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
	}
	if claims, err := Inspect(pair.AccessToken); err == nil && claims.ExpiresAt != nil {
		tok.Expiry = claims.ExpiresAt.Time
	}
	return tok, nil
}

// AccessExpiry returns the exp claim of the stored access token, or the zero
// time when there is no token or it is not a JWT.
func (s *Store) AccessExpiry() time.Time {
	claims, err := Inspect(s.AccessToken())
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
