// Package ttn is a small client for the The Things Stack v3 HTTP API.
package ttn

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lora-console/pkg/model"
)

var (
	ErrUnauthorized   = errors.New("ttn: unauthorized")
	ErrNotFound       = errors.New("ttn: not found")
	ErrInvalidRequest = errors.New("ttn: invalid request")
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
}

// APIError carries a non-2xx upstream response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ttn: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// ServerAddresses are stamped on every device the console creates.
type ServerAddresses struct {
	Network     string
	Application string
	Join        string
}

// Client talks to one TTN deployment. Tokens are passed per call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	servers    ServerAddresses
}

// NewClient builds a client for baseURL (e.g. https://host/api/v3).
// insecure skips TLS verification for self-signed lab deployments.
func NewClient(baseURL string, timeout time.Duration, insecure bool, servers ServerAddresses) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		servers:    servers,
	}
}

// BearerToken normalizes a token to the "Bearer <token>" form.
func BearerToken(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", BearerToken(token))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ttn %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: upstreamMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("ttn decode %s: %w", path, err)
	}
	return nil
}

// upstreamMessage pulls the message field out of a TTN error body.
func upstreamMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(b, &e) == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(b))
}

func esc(s string) string { return url.PathEscape(s) }

// GetUser fetches the user; used to validate login credentials.
func (c *Client) GetUser(ctx context.Context, token, userID string) (model.User, error) {
	var u model.User
	err := c.do(ctx, token, http.MethodGet, "/users/"+esc(userID), nil, &u)
	return u, err
}
