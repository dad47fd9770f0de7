// Package identity talks to the platform's identity endpoints.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/BerryBytes/portalctl/models"
	"github.com/rs/zerolog"
)

const (
	DefaultTimeout = 15 * time.Second

	// invalidTokenMessage is the server's signal that the token itself is
	// rejected, as opposed to any other failure.
	invalidTokenMessage = "Invalid token"

	maxBodySize = 1 << 20
)

var ErrRefreshUnsupported = errors.New("admin sessions cannot be refreshed")

// APIError is a failure reported by the server that is not a token rejection.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("identity api returned status %d: %s", e.StatusCode, e.Message)
}

// Client implements the user endpoints directly; Admin returns the adapter
// for the admin endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

var (
	_ session.IdentityAPI   = (*Client)(nil)
	_ session.Authenticator = (*Client)(nil)
)

// NewClient builds a client for baseURL. A nil httpClient gets one with
// DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With().Str("component", "identity").Logger(),
	}
}

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.Grant, error) {
	var resp response
	if err := c.do(ctx, http.MethodPost, "/login", "", req, &resp); err != nil {
		return nil, err
	}
	return resp.grant(), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*models.Grant, error) {
	var resp response
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/refresh", "", body, &resp); err != nil {
		return nil, err
	}
	return resp.grant(), nil
}

func (c *Client) Profile(ctx context.Context, accessToken string) (*models.Identity, error) {
	var resp response
	if err := c.do(ctx, http.MethodGet, "/profile", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.identity(), nil
}

func (c *Client) AdminLogin(ctx context.Context, req models.LoginRequest) (*models.Grant, error) {
	var resp response
	if err := c.do(ctx, http.MethodPost, "/admin/login", "", req, &resp); err != nil {
		return nil, err
	}
	return resp.grant(), nil
}

func (c *Client) AdminInfo(ctx context.Context, accessToken string) (*models.Identity, error) {
	var resp response
	if err := c.do(ctx, http.MethodGet, "/admin/info", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.identity(), nil
}

// Admin returns the admin variant of the client.
func (c *Client) Admin() *AdminAPI {
	return &AdminAPI{client: c}
}

// AdminAPI maps the admin endpoints onto the session interfaces.
type AdminAPI struct {
	client *Client
}

var (
	_ session.IdentityAPI   = (*AdminAPI)(nil)
	_ session.Authenticator = (*AdminAPI)(nil)
)

func (a *AdminAPI) Login(ctx context.Context, req models.LoginRequest) (*models.Grant, error) {
	return a.client.AdminLogin(ctx, req)
}

func (a *AdminAPI) Refresh(context.Context, string) (*models.Grant, error) {
	return nil, ErrRefreshUnsupported
}

func (a *AdminAPI) Profile(ctx context.Context, accessToken string) (*models.Identity, error) {
	return a.client.AdminInfo(ctx, accessToken)
}

func (c *Client) do(ctx context.Context, method, path, token string, in any, out *response) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("identity request")

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response of %s: %w", path, err)
	}
	decodeErr := json.Unmarshal(data, out)

	if out.Message == invalidTokenMessage {
		return fmt.Errorf("%s: %w", path, session.ErrInvalidToken)
	}
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		return fmt.Errorf("%s: %w", path, session.ErrInvalidToken)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: out.Message}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, decodeErr)
	}
	if out.Success != nil && !*out.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: out.Message}
	}
	return nil
}

// response covers every endpoint: records may be top level, under "profile"
// or under "data".
type response struct {
	Success      *bool     `json:"success"`
	Message      string    `json:"message"`
	Token        string    `json:"token"`
	AccessExpiry timestamp `json:"accessExpiry"`
	RefreshToken string    `json:"refreshToken"`
	models.Identity
	Profile *models.Identity `json:"profile"`
	Data    *models.Identity `json:"data"`
}

func (r *response) identity() *models.Identity {
	return r.Identity.Merge(r.Profile).Merge(r.Data)
}

func (r *response) grant() *models.Grant {
	return &models.Grant{
		AccessToken:  r.Token,
		AccessExpiry: r.AccessExpiry.Time,
		RefreshToken: r.RefreshToken,
		Identity:     r.identity(),
	}
}

// timestamp accepts epoch seconds, epoch milliseconds or RFC3339. Anything
// else leaves it zero so the caller falls back to another expiry source.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
		if n < 1e11 {
			t.Time = time.Unix(n, 0)
		} else {
			t.Time = time.UnixMilli(n)
		}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
	}
	return nil
}
