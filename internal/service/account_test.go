package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfileResyncsSession(t *testing.T) {
	h := newHarness(t)
	svc := NewAccountService(h.c, h.sess)

	user, err := svc.UpdateProfile(context.Background(), model.UpdateProfileRequest{FirstName: "Augusta"})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", user.FirstName)
	assert.Equal(t, "Augusta Lovelace", h.sess.User().DisplayName())
}

func TestUploadAvatar(t *testing.T) {
	h := newHarness(t)
	svc := NewAccountService(h.c, h.sess)

	user, err := svc.UploadAvatar(context.Background(), "me.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/avatars/me.png", user.AvatarURL)
	assert.Equal(t, "/uploads/avatars/me.png", h.sess.User().AvatarURL)
}

func TestDeleteAccount(t *testing.T) {
	h := newHarness(t)
	svc := NewAccountService(h.c, h.sess)
	ctx := context.Background()

	t.Run("requires confirmation", func(t *testing.T) {
		err := svc.DeleteAccount(ctx, testPassword, "yes")
		apiErr, ok := client.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.True(t, h.sess.IsAuthenticated())
	})

	t.Run("wrong password keeps the session", func(t *testing.T) {
		err := svc.DeleteAccount(ctx, "wrong", "DELETE")
		require.Error(t, err)
		assert.True(t, h.store.HasToken())
	})

	t.Run("deletes and signs out", func(t *testing.T) {
		require.NoError(t, svc.DeleteAccount(ctx, testPassword, "DELETE"))
		assert.False(t, h.sess.IsAuthenticated())
		assert.False(t, h.store.HasToken())
		assert.Equal(t, session.DefaultLoginRoute, h.route)
	})
}

func TestPublicFlows(t *testing.T) {
	h := newHarness(t)
	svc := NewAccountService(h.c, h.sess)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, "owner@example.com"))
	require.NoError(t, svc.ResetPassword(ctx, "reset-token", "new-password-1"))
	require.NoError(t, svc.VerifyEmail(ctx, "verify-token"))
	require.NoError(t, svc.ResendVerification(ctx, "owner@example.com"))

	err := svc.ForgotPassword(ctx, "nope")
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "email must be an email", apiErr.Message)

	err = svc.ChangePassword(ctx, model.ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "short"})
	apiErr, ok = client.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "newPassword must be at least 8 characters", apiErr.Message)

	require.NoError(t, svc.ChangePassword(ctx, model.ChangePasswordRequest{CurrentPassword: testPassword, NewPassword: "another-pass"}))
}
