// Package adminapi is the request helper behind every admin CRUD screen.
package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BerryBytes/portalctl/internal/notify"
	"github.com/BerryBytes/portalctl/internal/session"
	"github.com/rs/zerolog"
)

var (
	ErrNotAuthenticated = errors.New("admin session is not logged in")
	// ErrUnauthorized is returned after the server answered 401. The admin
	// credentials have been cleared by then.
	ErrUnauthorized = errors.New("admin session rejected by the server")
)

// Error is a non-2xx answer other than 401.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, msg)
}

// Upload sends a body that is not JSON, such as a multipart form.
type Upload struct {
	ContentType string
	Body        io.Reader
}

type Client struct {
	baseURL  string
	http     *http.Client
	store    *session.Store
	notifier notify.Notifier
	logger   zerolog.Logger
}

// NewClient builds a client that authenticates with the credentials in
// store, which must use the admin key layout.
func NewClient(baseURL string, httpClient *http.Client, store *session.Store, n notify.Notifier, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		store:    store,
		notifier: n,
		logger:   logger.With().Str("component", "adminapi").Logger(),
	}
}

// Path builds /admin/<resource>[/<id>][/<action>].
func Path(resource, id, action string) string {
	var b strings.Builder
	b.WriteString("/admin/")
	b.WriteString(strings.Trim(resource, "/"))
	if id != "" {
		b.WriteString("/")
		b.WriteString(url.PathEscape(id))
	}
	if action != "" {
		b.WriteString("/")
		b.WriteString(strings.Trim(action, "/"))
	}
	return b.String()
}

// Do sends one request. body is JSON encoded unless it is an Upload; out,
// when non-nil, receives the decoded JSON answer.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	creds, err := c.store.ReadCredentials(ctx)
	if err != nil {
		return err
	}
	if !creds.HasAccess() {
		return ErrNotAuthenticated
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var (
		reader      io.Reader
		contentType = "application/json"
	)
	switch b := body.(type) {
	case nil:
	case Upload:
		reader = b.Body
		contentType = b.ContentType
	case *Upload:
		reader = b.Body
		contentType = b.ContentType
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("admin request")

	if resp.StatusCode == http.StatusUnauthorized {
		c.dropSession(ctx)
		return ErrUnauthorized
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response of %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(data, &failure)
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Message: failure.Message}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
	}
	return nil
}

// dropSession clears the admin credentials and tells the admin controllers.
// Cached admin records stay until the controller logs out.
func (c *Client) dropSession(ctx context.Context) {
	c.logger.Warn().Msg("admin token rejected, clearing credentials")
	if err := c.store.ClearCredentials(ctx); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear admin credentials")
	}
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Publish(ctx, notify.Event{Topic: notify.TopicAdminToken}); err != nil {
		c.logger.Warn().Err(err).Msg("failed to publish admin token change")
	}
}

// ListOptions are the pagination and filter parameters shared by list pages.
type ListOptions struct {
	Page   int
	Limit  int
	Search string
	Status string
	From   time.Time
	To     time.Time
}

func (o ListOptions) Values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Status != "" {
		v.Set("status", o.Status)
	}
	if !o.From.IsZero() {
		v.Set("from", o.From.Format(time.DateOnly))
	}
	if !o.To.IsZero() {
		v.Set("to", o.To.Format(time.DateOnly))
	}
	return v
}

func (c *Client) List(ctx context.Context, resource string, opts ListOptions, out any) error {
	return c.Do(ctx, http.MethodGet, Path(resource, "", ""), opts.Values(), nil, out)
}

func (c *Client) Get(ctx context.Context, resource, id string, out any) error {
	return c.Do(ctx, http.MethodGet, Path(resource, id, ""), nil, nil, out)
}

func (c *Client) Create(ctx context.Context, resource string, body, out any) error {
	return c.Do(ctx, http.MethodPost, Path(resource, "", ""), nil, body, out)
}

func (c *Client) Update(ctx context.Context, resource, id string, body, out any) error {
	return c.Do(ctx, http.MethodPut, Path(resource, id, ""), nil, body, out)
}

func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.Do(ctx, http.MethodDelete, Path(resource, id, ""), nil, nil, nil)
}

// Action posts to a custom endpoint of a record, such as
// /admin/withdrawals/42/approve.
func (c *Client) Action(ctx context.Context, resource, id, action string, body, out any) error {
	return c.Do(ctx, http.MethodPost, Path(resource, id, action), nil, body, out)
}
