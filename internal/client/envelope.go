package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hafizbahtiar/console/internal/model"
)

// Shape tags which envelope convention a response body used.
type Shape int

const (
	ShapeBare Shape = iota
	ShapeWrapped
)

// UnwrapData normalizes the backend's two success conventions. A JSON object
// with a "data" member is the wrapped shape and yields that member; anything
// else is returned as-is.
func UnwrapData(body []byte) (json.RawMessage, Shape) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed, ShapeBare
	}
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil || probe.Data == nil {
		return trimmed, ShapeBare
	}
	return probe.Data, ShapeWrapped
}

// DecodePage reads a paginated envelope. A bare array is accepted as a single
// page holding every item.
func DecodePage[T any](body []byte) (model.Page[T], error) {
	var page model.Page[T]
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &page.Data); err != nil {
			return page, err
		}
		n := len(page.Data)
		page.Pagination = model.Pagination{Page: 1, Limit: n, Total: n, TotalPages: 1}
		return page, nil
	}

	var env model.Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return page, err
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '{' {
		// {success, data: {data: [...], pagination}} nests the page one level deeper.
		return DecodePage[T](data)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &page.Data); err != nil {
			return page, err
		}
	}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	} else {
		n := len(page.Data)
		page.Pagination = model.Pagination{Page: 1, Limit: n, Total: n, TotalPages: 1}
	}
	return page, nil
}

// GetData performs a GET and returns the unwrapped data member.
func GetData[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodGet, path, RequestOptions{ExtractData: true}, &out)
	return out, err
}

func PostData[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPost, path, RequestOptions{Body: body, ExtractData: true}, &out)
	return out, err
}

func PatchData[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Do(ctx, http.MethodPatch, path, RequestOptions{Body: body, ExtractData: true}, &out)
	return out, err
}

// GetPage performs a GET against a list endpoint and decodes either the
// paginated envelope or a bare array.
func GetPage[T any](ctx context.Context, c *Client, path string, query url.Values) (model.Page[T], error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, RequestOptions{Query: query}, &raw); err != nil {
		return model.Page[T]{}, err
	}
	if len(raw) == 0 {
		return model.Page[T]{}, nil
	}
	page, err := DecodePage[T](raw)
	if err != nil {
		return model.Page[T]{}, &APIError{StatusCode: http.StatusOK, Message: msgInvalidResponse, err: err}
	}
	return page, nil
}

// UnwrapInto sends body with method and decodes the unwrapped data into out.
func UnwrapInto(ctx context.Context, c *Client, method, path string, body, out any) error {
	return c.Do(ctx, method, path, RequestOptions{Body: body, ExtractData: true}, out)
}
