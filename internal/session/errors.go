package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hafizbahtiar/console/internal/client"
)

// bestEffort runs fn and swallows its error. Only Logout and RefreshUser
// use it: those must tear local state down whatever the backend says.
func bestEffort(log *slog.Logger, op string, fn func() error) bool {
	if err := fn(); err != nil {
		log.Debug("best-effort call failed", "op", op, "err", err)
		return false
	}
	return true
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v's validate tags. Failures come back as a 400 *client.APIError
// so callers render them like a backend rejection.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError reports local input validation failures in the same
// shape the backend uses for a 400.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &client.APIError{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return &client.APIError{
		StatusCode: http.StatusBadRequest,
		Message:    strings.Join(msgs, ", "),
		ErrorCode:  "VALIDATION_ERROR",
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be an email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
