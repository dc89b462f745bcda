package model

import (
	"encoding/json"
	"strings"
)

// Envelope is the wrapped success shape. Data stays raw until the caller picks a type.
type Envelope struct {
	Success    *bool           `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

type Pagination struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	Total           int  `json:"total"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ErrorResponse is the backend error envelope. Message is either a string or,
// for validation failures, a list of strings.
type ErrorResponse struct {
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error,omitempty"`
	ErrorCode  string          `json:"errorCode,omitempty"`
	StatusCode int             `json:"statusCode,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Text flattens Message; it falls back to Error when no message is present.
func (e ErrorResponse) Text() string {
	if len(e.Message) > 0 {
		var s string
		if err := json.Unmarshal(e.Message, &s); err == nil {
			return s
		}
		var list []string
		if err := json.Unmarshal(e.Message, &list); err == nil {
			return strings.Join(list, ", ")
		}
	}
	return e.Error
}

type StatusResponse struct {
	Status string `json:"status"`
}

type PingResponse struct {
	Message string `json:"message"`
}

type RootResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
