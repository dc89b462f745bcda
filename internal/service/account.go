package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hafizbahtiar/console/internal/client"
	"github.com/hafizbahtiar/console/internal/model"
	"github.com/hafizbahtiar/console/internal/session"
)

const (
	pathProfile            = "/users/me"
	pathAvatar             = "/users/me/avatar"
	pathPassword           = "/users/me/password"
	pathForgotPassword     = "/auth/forgot-password"
	pathResetPassword      = "/auth/reset-password"
	pathVerifyEmail        = "/auth/verify-email"
	pathResendVerification = "/auth/resend-verification"

	deleteConfirmation = "DELETE"
)

// AccountService covers the signed-in user's own profile plus the public
// password and email flows. Profile mutations re-sync the session user.
type AccountService struct {
	api  *client.Client
	sess *session.Session
}

func NewAccountService(api *client.Client, sess *session.Session) *AccountService {
	return &AccountService{api: api, sess: sess}
}

func (s *AccountService) UpdateProfile(ctx context.Context, req model.UpdateProfileRequest) (*model.User, error) {
	user, err := client.PatchData[model.User](ctx, s.api, pathProfile, req)
	if err != nil {
		return nil, err
	}
	s.sess.RefreshUser(ctx)
	return &user, nil
}

func (s *AccountService) UploadAvatar(ctx context.Context, filename string, content io.Reader) (*model.User, error) {
	body, err := client.NewMultipart(nil, client.FilePart{
		Field:    "avatar",
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("build avatar upload: %w", err)
	}
	user, err := client.PostData[model.User](ctx, s.api, pathAvatar, body)
	if err != nil {
		return nil, err
	}
	s.sess.RefreshUser(ctx)
	return &user, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, req model.ChangePasswordRequest) error {
	if err := session.Validate(req); err != nil {
		return err
	}
	return s.api.Patch(ctx, pathPassword, req, nil)
}

// DeleteAccount removes the account and then ends the local session.
func (s *AccountService) DeleteAccount(ctx context.Context, password, confirmation string) error {
	if confirmation != deleteConfirmation {
		return &client.APIError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("type %s to confirm", deleteConfirmation),
			ErrorCode:  "VALIDATION_ERROR",
		}
	}
	req := model.DeleteAccountRequest{Password: password, Confirmation: confirmation}
	if err := s.api.Delete(ctx, pathProfile, req, nil); err != nil {
		return err
	}
	s.sess.Logout(ctx)
	return nil
}

func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	req := model.ForgotPasswordRequest{Email: email}
	if err := session.Validate(req); err != nil {
		return err
	}
	return s.api.Post(ctx, pathForgotPassword, req, nil)
}

func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	req := model.ResetPasswordRequest{Token: token, Password: password}
	if err := session.Validate(req); err != nil {
		return err
	}
	return s.api.Post(ctx, pathResetPassword, req, nil)
}

func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	req := model.VerifyEmailRequest{Token: token}
	if err := session.Validate(req); err != nil {
		return err
	}
	return s.api.Post(ctx, pathVerifyEmail, req, nil)
}

func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	req := model.ForgotPasswordRequest{Email: email}
	if err := session.Validate(req); err != nil {
		return err
	}
	return s.api.Post(ctx, pathResendVerification, req, nil)
}
