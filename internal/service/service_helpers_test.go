package service

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/config"
	"github.com/hafizbahtiar/console/internal/mockapi"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/session"
	"github.com/hafizbahtiar/console/internal/storage"
	"github.com/hafizbahtiar/console/internal/tokens"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "owner@example.com"
	testPassword = "password123"
)

type harness struct {
	api   *mockapi.Server
	store *tokens.Store
	c     *client.Client
	sess  *session.Session
	route string
}

// newHarness starts the mock backend and signs the seeded owner in.
func newHarness(t *testing.T) *harness {
	t.Helper()
	api := mockapi.New(mockapi.Options{})
	_, err := api.Auth.Seed(model.User{Email: testEmail, FirstName: "Ada", LastName: "Lovelace", Role: model.RoleOwner}, testPassword)
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	h := &harness{api: api, store: tokens.NewStore(storage.NewMemory(), nil)}
	h.c = client.New(config.APIConfig{BaseURL: srv.URL + "/api/v1"}, h.store.TokenSource())
	h.sess = session.New(h.c, h.store, session.NavigatorFunc(func(r string) { h.route = r }))
	require.NoError(t, h.sess.Login(context.Background(), testEmail, testPassword))
	return h
}
