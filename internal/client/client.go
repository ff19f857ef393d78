// Package client is the HTTP accessor for the messaging backend. It
// implements messaging.Store against the API surface under /api and
// carries no local state beyond its configuration; every call reflects
// the backend's current view.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/givebridge/messaging/internal/auth"
	"github.com/givebridge/messaging/internal/logger"
	"github.com/givebridge/messaging/internal/messaging"
	"github.com/givebridge/messaging/internal/models"
)

var (
	ErrEmptyContent   = errors.New("message content must not be empty")
	ErrSelfMessage    = errors.New("sender and receiver must differ")
	ErrViewerMismatch = errors.New("user id does not match the session token")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the messaging backend over HTTP with a bearer token.
// The backend derives identity from the token alone, so methods taking
// a user id require it to match the token's account.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	serverSide bool
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token identifying the session.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithServerConversations selects the backend's precomputed
// conversations endpoint. Without it, summaries are derived client-side
// from the inbox and sent collections; both paths satisfy the same
// contract.
func WithServerConversations() Option {
	return func(c *Client) { c.serverSide = true }
}

// New creates a client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.New("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the session token, e.g. after a re-login.
func (c *Client) SetToken(token string) {
	c.token = token
}

// checkViewer guards the methods that take a user id: the backend
// scopes every collection by the bearer token, so a diverging id would
// silently compute views for the wrong user. The token's signature is
// the server's concern; only its subject is read here.
func (c *Client) checkViewer(userID int64) error {
	if c.token == "" {
		return nil
	}
	claims := &auth.JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.token, claims); err != nil {
		// Malformed tokens are rejected server-side
		return nil
	}
	if claims.UserID != userID {
		return fmt.Errorf("%w: got %d, token is for %d", ErrViewerMismatch, userID, claims.UserID)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Error
		}
		c.log.Warn("%s %s: %v", method, path, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Inbox fetches all messages addressed to the user, newest first.
// userID must be the token's account; see checkViewer.
func (c *Client) Inbox(ctx context.Context, userID int64) ([]models.Message, error) {
	if err := c.checkViewer(userID); err != nil {
		return nil, err
	}
	var messages []models.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/inbox", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Sent fetches all messages the user sent, newest first.
func (c *Client) Sent(ctx context.Context, userID int64) ([]models.Message, error) {
	if err := c.checkViewer(userID); err != nil {
		return nil, err
	}
	var messages []models.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/sent", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Conversations returns the user's conversation summaries, either from
// the backend's grouped endpoint or derived locally from the raw
// message collections.
func (c *Client) Conversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	if err := c.checkViewer(userID); err != nil {
		return nil, err
	}
	if c.serverSide {
		var summaries []models.ConversationSummary
		if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &summaries); err != nil {
			return nil, err
		}
		return summaries, nil
	}

	inbox, err := c.Inbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	sent, err := c.Sent(ctx, userID)
	if err != nil {
		return nil, err
	}

	return messaging.DeriveSummaries(userID, append(inbox, sent...)), nil
}

// Thread fetches the conversation with otherUserID, oldest first.
func (c *Client) Thread(ctx context.Context, userID, otherUserID int64) ([]models.Message, error) {
	if err := c.checkViewer(userID); err != nil {
		return nil, err
	}
	var messages []models.Message
	path := fmt.Sprintf("/api/conversations/%d", otherUserID)
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Send creates a new message. The backend assigns the id; the caller
// re-fetches the thread rather than inserting the result locally.
func (c *Client) Send(ctx context.Context, req models.SendRequest) (*models.Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, ErrEmptyContent
	}
	if req.SenderID == req.ReceiverID {
		return nil, ErrSelfMessage
	}

	var message models.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", req, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead transitions one message to read. Marking an already-read
// message is a no-op on the backend, so retries are safe.
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	path := fmt.Sprintf("/api/messages/%d/read", messageID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

// MarkConversationRead transitions every unread message addressed to
// the user in the given conversation to read.
func (c *Client) MarkConversationRead(ctx context.Context, userID, otherUserID int64) error {
	if err := c.checkViewer(userID); err != nil {
		return err
	}
	path := fmt.Sprintf("/api/conversations/%d/read", otherUserID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

var _ messaging.Store = (*Client)(nil)
