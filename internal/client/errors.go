package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hafizbahtiar/console/internal/model"
)

// StatusNetworkError is the StatusCode of an APIError raised when no HTTP
// response was received at all.
const StatusNetworkError = 0

const (
	msgRequestFailed   = "request failed"
	msgInvalidResponse = "invalid response body"
)

// APIError is the single error type the client returns for anything that
// went wrong on the wire: server rejections, transport failures and
// undecodable responses.
type APIError struct {
	StatusCode int
	Message    string
	ErrorCode  string
	Details    json.RawMessage

	err error
}

func (e *APIError) Error() string {
	if e.StatusCode == StatusNetworkError {
		if e.err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.err)
		}
		return e.Message
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.err
}

// IsNetwork reports whether the request never produced a response.
func (e *APIError) IsNetwork() bool {
	return e.StatusCode == StatusNetworkError
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Message returns the server's message for API errors and fallback otherwise.
func Message(err error, fallback string) string {
	if apiErr, ok := AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func networkError(err error) *APIError {
	return &APIError{StatusCode: StatusNetworkError, Message: msgRequestFailed, err: err}
}

func statusMessage(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", code)
}

// errorFromResponse builds the APIError for a non-2xx response. Bodies that
// are not a JSON error envelope fall back to the status text.
func errorFromResponse(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env model.ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Message = env.Text()
		apiErr.ErrorCode = env.ErrorCode
		apiErr.Details = env.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = statusMessage(status)
	}
	return apiErr
}
