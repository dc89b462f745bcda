package tokens

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hafizbahtiar/console/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStorage struct{ failKey string }

func (b brokenStorage) Get(context.Context, string) (string, error) {
	return "", errors.New("unavailable")
}

func (b brokenStorage) Set(_ context.Context, key, _ string) error {
	if b.failKey == "" || b.failKey == key {
		return errors.New("unavailable")
	}
	return nil
}

func (b brokenStorage) Delete(context.Context, string) error {
	return errors.New("unavailable")
}

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestSetThenGetReturnsLatest(t *testing.T) {
	s := NewStore(storage.NewMemory(), nil)

	for _, pair := range [][2]string{{"a1", "r1"}, {"a2", "r2"}, {"a3", "r3"}} {
		s.SetTokens(pair[0], pair[1])
		assert.Equal(t, pair[0], s.AccessToken())
		assert.Equal(t, pair[1], s.RefreshToken())
	}
	assert.True(t, s.HasToken())
	assert.True(t, s.Pair().Complete())
}

func TestClearTokens(t *testing.T) {
	s := NewStore(storage.NewMemory(), nil)

	s.ClearTokens()
	assert.Equal(t, "", s.AccessToken())

	s.SetTokens("a", "r")
	s.ClearTokens()
	s.ClearTokens()
	assert.Equal(t, "", s.AccessToken())
	assert.Equal(t, "", s.RefreshToken())
	assert.False(t, s.HasToken())
}

func TestUnavailableStorageIsNoop(t *testing.T) {
	s := NewStore(brokenStorage{}, nil)

	assert.NotPanics(t, func() {
		s.SetTokens("a", "r")
		s.ClearTokens()
	})
	assert.Equal(t, "", s.AccessToken())

	nilBacked := NewStore(nil, nil)
	nilBacked.SetTokens("a", "r")
	assert.Equal(t, "", nilBacked.AccessToken())
}

func TestSetTokensRollsBackHalfPair(t *testing.T) {
	mem := storage.NewMemory()
	s := NewStore(&failingRefresh{Memory: mem}, nil)

	s.SetTokens("a", "r")

	assert.Equal(t, "", s.AccessToken())
	assert.Equal(t, "", s.RefreshToken())
}

type failingRefresh struct{ *storage.Memory }

func (f *failingRefresh) Set(ctx context.Context, key, value string) error {
	if key == RefreshTokenKey {
		return errors.New("quota exceeded")
	}
	return f.Memory.Set(ctx, key, value)
}

func TestTokenSource(t *testing.T) {
	s := NewStore(storage.NewMemory(), nil)

	_, err := s.TokenSource().Token()
	require.ErrorIs(t, err, ErrNoToken)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}})
	s.SetTokens(access, "r")

	tok, err := s.TokenSource().Token()
	require.NoError(t, err)
	assert.Equal(t, access, tok.AccessToken)
	assert.Equal(t, "r", tok.RefreshToken)
	assert.Equal(t, "Bearer", tok.Type())
	assert.True(t, tok.Expiry.Equal(exp))
	assert.True(t, s.AccessExpiry().Equal(exp))
}

func TestInspectAndExpired(t *testing.T) {
	now := time.Now()
	live := signed(t, Claims{Role: "owner", RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}})
	stale := signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
	}})

	claims, err := Inspect(live)
	require.NoError(t, err)
	assert.Equal(t, "owner", claims.Role)
	assert.Equal(t, "u1", claims.Subject)

	assert.False(t, Expired(live, now))
	assert.True(t, Expired(stale, now))
	assert.False(t, Expired("opaque-token", now))

	_, err = Inspect("opaque-token")
	require.ErrorIs(t, err, ErrOpaqueToken)
	_, err = Inspect("")
	require.ErrorIs(t, err, ErrNoToken)
}
