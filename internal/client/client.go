// Package client is the HTTP API client consumed by the timeline and the
// load-test tool. It attaches the bearer token from login and maps response
// codes back onto the shared error values.
package client

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
	"time"

	"chatsync/internal/chat"
	"chatsync/internal/session"
	"chatsync/internal/user"
)

// ErrServer covers 5xx responses: the store failed, nothing was validated
// wrong on our side, and nothing retries automatically.
var ErrServer = errors.New("server error")

type Client struct {
	base  string
	http  *http.Client
	token string

	UserID   int64
	Username string
}

func New(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login performs the username handshake and keeps the issued token for all
// subsequent requests.
func (c *Client) Login(ctx context.Context, username string) (*user.LoginResponse, error) {
	var res user.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/login", user.LoginRequest{Username: username}, &res)
	if err != nil {
		return nil, err
	}
	c.token = res.Token
	c.UserID = res.ID
	c.Username = res.Username
	return &res, nil
}

// Chats fetches the recency-sorted summary list.
func (c *Client) Chats(ctx context.Context) ([]chat.Summary, error) {
	var res []chat.Summary
	if err := c.do(ctx, http.MethodGet, "/api/chats", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) ChatDetail(ctx context.Context, chatID int64) (*chat.Detail, error) {
	var res chat.Detail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/chats/%d", chatID), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CreateChat(ctx context.Context, name string, participantIDs []int64) (*chat.Chat, error) {
	var res chat.Chat
	req := chat.CreateChatRequest{Name: name, ParticipantIDs: participantIDs}
	if err := c.do(ctx, http.MethodPost, "/api/chats", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Page implements timeline.Pager.
func (c *Client) Page(ctx context.Context, chatID, before int64, limit int) (*chat.Page, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before > 0 {
		q.Set("before", strconv.FormatInt(before, 10))
	}
	path := fmt.Sprintf("/api/chats/%d/messages", chatID)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var res chat.Page
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Send implements timeline.Sender.
func (c *Client) Send(ctx context.Context, chatID int64, body string) (*chat.Message, error) {
	var res chat.Message
	path := fmt.Sprintf("/api/chats/%d/messages", chatID)
	if err := c.do(ctx, http.MethodPost, path, chat.SendMessageRequest{Body: body}, &res); err != nil {
		return nil, err
	}
	return &res, nil
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

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := resp.Status
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", chat.ErrEmptyBody, msg)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", session.ErrInvalidToken, msg)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", chat.ErrNotParticipant, msg)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", chat.ErrChatNotFound, msg)
	default:
		return fmt.Errorf("%w: %d %s", ErrServer, resp.StatusCode, msg)
	}
}
