// Package whpapi is the client of the remote WHP API.
//
// Every call forwards the bearer token carried by the context (see
// WithToken). Non-2xx responses come back as *APIError; transport failures
// are wrapped network errors.
package whpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to one WHP API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. A zero timeout uses 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type tokenKey struct{}

// WithToken returns a context whose calls authenticate with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// APIError is a non-2xx answer, or a 2xx answer that reports failure.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("whp api %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("whp api %s: status %d: %s", e.Path, e.StatusCode, e.Message)
}

// MessageOr returns the remote message of err when there is one, and
// fallback otherwise.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// envelope is the common response body of the remote API.
type envelope struct {
	StatusCode int             `json:"statusCode,omitempty"`
	Success    *bool           `json:"success,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      json.RawMessage `json:"error,omitempty"`
}

// errorMessage picks error.message, then message.
func (e envelope) errorMessage() string {
	if len(e.Error) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &detail); err == nil && detail.Message != "" {
			return detail.Message
		}
	}
	return e.Message
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request %s: %w", path, err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}
	return c.do(ctx, method, path, bodyReader, "application/json; charset=utf-8")
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}

	var env envelope
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode response %s: %w", path, err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.errorMessage(), Path: path}
	}
	return &env, nil
}

func decodeData(env *envelope, path string, out interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data %s: %w", path, err)
	}
	return nil
}

// Result is the raw data of a successful call, passed through to callers
// that do not interpret it.
type Result struct {
	Message string
	Data    json.RawMessage
}

func (c *Client) result(ctx context.Context, method, path string, body interface{}) (*Result, error) {
	env, err := c.doJSON(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return &Result{Message: env.Message, Data: env.Data}, nil
}

// uploadMultipart posts one file under field "file".
func (c *Client) uploadMultipart(ctx context.Context, path, fileName string, data []byte) (*envelope, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return nil, fmt.Errorf("build upload %s: %w", path, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload %s: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType())
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
