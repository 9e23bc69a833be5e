package bikeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/busterbike/ride-tracker/internal/domain/bike"
	"github.com/busterbike/ride-tracker/pkg/logger"
)

const maxBodyBytes = 1 << 20

var (
	ErrUnauthenticated     = errors.New("not authenticated")
	ErrNoReservation       = errors.New("no reserved bike")
	ErrReservationRejected = errors.New("reservation rejected")
	ErrMissingToken        = errors.New("login response carried no token")
)

// StatusError is returned for unexpected non-2xx responses
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// Config holds bike-sharing API client configuration
type Config struct {
	BaseURL    string
	AuthScheme string
	Timeout    time.Duration
}

// EndRideRequest is the ride-completion payload: the bike's current fields
// plus the distance accumulated on this device
type EndRideRequest struct {
	bike.Bike
	DrivenDistance string `json:"driven_distance"`
}

// Client talks to the bike-sharing HTTP API on behalf of the rider
type Client struct {
	baseURL    string
	authScheme string
	http       *http.Client
	tokens     *TokenStore
	logger     *logger.Logger
}

// New creates a new API client
func New(cfg Config, tokens *TokenStore, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = "Token"
	}
	if tokens == nil {
		tokens = NewTokenStore("")
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authScheme: scheme,
		http:       &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     log,
	}
}

// Tokens returns the token store used to authenticate requests
func (c *Client) Tokens() *TokenStore {
	return c.tokens
}

// GetReservedBike handles GET /users/reserved/
func (c *Client) GetReservedBike(ctx context.Context) (*bike.Bike, error) {
	resp, err := c.do(ctx, http.MethodGet, "/users/reserved/", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthenticated
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return nil, ErrNoReservation
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, statusError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read reservation: %w", err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoReservation
	}

	var b bike.Bike
	if err := json.Unmarshal(trimmed, &b); err != nil {
		return nil, fmt.Errorf("failed to decode reservation: %w", err)
	}
	if b.ID == "" {
		return nil, ErrNoReservation
	}
	return &b, nil
}

// EndRide handles POST /users/reserved/end/
func (c *Client) EndRide(ctx context.Context, req EndRideRequest) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/users/reserved/end/", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthenticated
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return statusError(resp)
	}
	drain(resp)
	return nil
}

// ReserveBike handles POST /bikes/reserve/{id}/
func (c *Client) ReserveBike(ctx context.Context, id bike.ID) error {
	path := fmt.Sprintf("/bikes/reserve/%s/", url.PathEscape(id.String()))
	resp, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %v", ErrReservationRejected, statusError(resp))
	}
	drain(resp)
	return nil
}

// ListBikes handles GET /bikes/list/
func (c *Client) ListBikes(ctx context.Context) ([]bike.Bike, error) {
	resp, err := c.do(ctx, http.MethodGet, "/bikes/list/", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}

	var bikes []bike.Bike
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&bikes); err != nil {
		return nil, fmt.Errorf("failed to decode bike list: %w", err)
	}
	return bikes, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login handles POST /users/login/ and stores the returned token
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.doJSON(ctx, http.MethodPost, "/users/login/", loginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		resp.StatusCode == http.StatusBadRequest {
		return ErrUnauthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	var body loginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}
	if body.Token == "" {
		return ErrMissingToken
	}
	c.tokens.Set(body.Token)
	return nil
}

// Logout handles POST /users/logout/. The local token is dropped even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.tokens.Clear()

	resp, err := c.do(ctx, http.MethodPost, "/users/logout/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	drain(resp)
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", method, path, err)
	}
	return c.do(ctx, method, path, data)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Get(); token != "" {
		req.Header.Set("Authorization", c.authScheme+" "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Bike API request failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.Err(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.logger.Debug("Bike API request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return resp, nil
}

func statusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{
		Method:     resp.Request.Method,
		Path:       resp.Request.URL.Path,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
}
