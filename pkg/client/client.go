// Package client is a small Go client for the marketplace HTTP API.
package client

import (
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

	"github.com/farmlink/marketplace/internal/i18n"
	"github.com/farmlink/marketplace/internal/services"
	apperrors "github.com/farmlink/marketplace/pkg/errors"
	"github.com/farmlink/marketplace/pkg/response"
)

const defaultTimeout = 15 * time.Second

// Client calls the API on behalf of one signed-in user.
type Client struct {
	baseURL *url.URL
	token   string
	locale  string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithLocale sends the locale cookie so localized payloads come back in that language.
func WithLocale(locale string) Option {
	return func(c *Client) {
		c.locale = strings.TrimSpace(locale)
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("client: unsupported scheme %q", parsed.Scheme)
	}

	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Page mirrors the paged list payload of the API.
type Page[T any] struct {
	Items []T           `json:"items"`
	Meta  response.Meta `json:"meta"`
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (*services.UserDTO, error) {
	var out services.UserDTO
	if err := c.get(ctx, "/api/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadCount returns the number of unread direct messages. Anonymous callers get zero.
func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		UnreadCount int64 `json:"unreadCount"`
	}
	if err := c.get(ctx, "/api/messages/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

// SubscriptionStatus returns the caller's subscription status.
func (c *Client) SubscriptionStatus(ctx context.Context) (*services.SubscriptionStatus, error) {
	var out services.SubscriptionStatus
	if err := c.get(ctx, "/api/subscriptions/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns one page of the conversation with otherUserID, newest first.
func (c *Client) Messages(ctx context.Context, otherUserID string, limit, offset int) (*Page[services.MessageDTO], error) {
	otherUserID = strings.TrimSpace(otherUserID)
	if otherUserID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	var out Page[services.MessageDTO]
	if err := c.get(ctx, "/api/messages/with/"+url.PathEscape(otherUserID), query, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	target := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.locale != "" {
		req.AddCookie(&http.Cookie{Name: i18n.CookieName, Value: c.locale})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// decodeError turns an error body back into an AppError so callers can match it with errors.Is.
func decodeError(status int, body []byte) error {
	var payload response.ErrorBody
	if err := json.Unmarshal(body, &payload); err != nil || payload.Code == "" {
		return apperrors.New("HTTP_"+strconv.Itoa(status), http.StatusText(status), status)
	}
	return apperrors.New(payload.Code, payload.Error, status)
}

// IsUnauthorized reports whether err is the API's 401 answer.
func IsUnauthorized(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.StatusCode == http.StatusUnauthorized
}
