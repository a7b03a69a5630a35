// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package oracle provides the HTTP client for the server's session-status
// and keep-alive endpoints.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the oracle client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeStatus
	ErrTypeInvalidResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeStatus:
		return "status"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// Sentinel errors for easy checking.
var (
	ErrTimeout      = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "session not authorized"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Defaults for ClientConfig.
const (
	DefaultBaseURL       = "http://127.0.0.1:8790"
	DefaultStatusPath    = "/auth/session-status"
	DefaultKeepAlivePath = "/auth/keep-alive"
	DefaultTimeout       = 10 * time.Second
)

// ClientConfig holds configuration options for the oracle client.
type ClientConfig struct {
	// BaseURL is the server root (default: http://127.0.0.1:8790)
	BaseURL string

	// StatusPath answers GET with {"remainingSeconds": n}
	StatusPath string

	// KeepAlivePath extends the session on POST
	KeepAlivePath string

	// Token is sent as a bearer token when set
	Token string

	// Cookie is sent verbatim as the Cookie header when set
	Cookie string

	// Timeout per request (default: 10s)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       DefaultBaseURL,
		StatusPath:    DefaultStatusPath,
		KeepAlivePath: DefaultKeepAlivePath,
		Timeout:       DefaultTimeout,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// StatusResponse is the body of the session-status endpoint.
type StatusResponse struct {
	RemainingSeconds *int `json:"remainingSeconds"`
}

// Client talks to the session oracle. It is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a client with the default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling zero fields with defaults.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.StatusPath == "" {
		cfg.StatusPath = DefaultStatusPath
	}
	if cfg.KeepAlivePath == "" {
		cfg.KeepAlivePath = DefaultKeepAlivePath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		config:     &cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

// Remaining asks the server how many whole seconds the session has left.
// Negative answers are reported as 0.
func (c *Client) Remaining(ctx context.Context) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, c.config.StatusPath)
	if err != nil {
		return 0, err
	}
	defer drainAndClose(resp.Body)

	if err := checkStatus(resp); err != nil {
		return 0, err
	}

	var status StatusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&status); err != nil {
		return 0, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if status.RemainingSeconds == nil {
		return 0, &ClientError{Type: ErrTypeInvalidResponse, Message: "response missing remainingSeconds"}
	}
	return max(0, *status.RemainingSeconds), nil
}

// KeepAlive asks the server to extend the session.
func (c *Client) KeepAlive(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, c.config.KeepAlivePath)
	if err != nil {
		return err
	}
	defer drainAndClose(resp.Body)
	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	if c.config.Cookie != "" {
		req.Header.Set("Cookie", c.config.Cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
		}
		return nil, &ClientError{Type: ErrTypeConnection, Message: "oracle unreachable", Cause: err}
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &ClientError{Type: ErrTypeUnauthorized, Message: "session not authorized: " + resp.Status}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &ClientError{Type: ErrTypeStatus, Message: fmt.Sprintf("unexpected status from oracle: %s", resp.Status)}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsUnauthorized checks if the server rejected the session.
func IsUnauthorized(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnauthorized
	}
	return errors.Is(err, ErrUnauthorized)
}

// TypeOf returns the ErrorType of err, or ErrTypeUnknown.
func TypeOf(err error) ErrorType {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type
	}
	return ErrTypeUnknown
}

func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
