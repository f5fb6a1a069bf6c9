package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"socio/internal/identity"
	"socio/internal/models"
	"socio/internal/observability"

	"github.com/valyala/fasthttp"
)

const defaultRequestTimeout = 10 * time.Second

// Client is the HTTP implementation of Actor. It serializes records as JSON
// and authenticates with a bearer token once one has been issued.
type Client struct {
	baseURL string
	timeout time.Duration
	httpc   *fasthttp.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		httpc:   &fasthttp.Client{},
	}
}

// SetToken installs the remote-call credential used for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current credential, empty when not authenticated.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return models.NewInternalError(err)
		}
		req.SetBody(payload)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	if err := c.httpc.DoTimeout(req, resp, timeout); err != nil {
		observability.RemoteCallErrors.WithLabelValues(op).Inc()
		observability.LogRemoteCallError(ctx, op, err)
		return models.NewRemoteCallError(op, "backend unreachable", err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		var remote struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		message := fmt.Sprintf("unexpected status %d", status)
		if err := json.Unmarshal(resp.Body(), &remote); err == nil && remote.Error != "" {
			message = remote.Error
		}
		observability.RemoteCallErrors.WithLabelValues(op).Inc()
		return models.NewRemoteCallError(op, message, nil)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			observability.RemoteCallErrors.WithLabelValues(op).Inc()
			return models.NewRemoteCallError(op, "malformed backend response", err)
		}
	}
	observability.LogRemoteCall(ctx, op, map[string]interface{}{"status": status})
	return nil
}

// GetProfileDetails fetches another user's profile record.
func (c *Client) GetProfileDetails(ctx context.Context, username string) (*models.ProfileRecord, error) {
	var record models.ProfileRecord
	path := "/api/profiles/" + url.PathEscape(username)
	if err := c.do(ctx, "getProfileDetails", fasthttp.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetUserDetails fetches the authenticated user's own profile record.
func (c *Client) GetUserDetails(ctx context.Context) (*models.ProfileRecord, error) {
	var record models.ProfileRecord
	if err := c.do(ctx, "getUserDetails", fasthttp.MethodGet, "/api/me", nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// UsernameAvailability reports whether a username is free to register.
func (c *Client) UsernameAvailability(ctx context.Context, username string) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	path := "/api/usernames/" + url.PathEscape(username) + "/availability"
	if err := c.do(ctx, "usernameAvailability", fasthttp.MethodGet, path, nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// RegisterUser creates an account and returns the issued credential token.
func (c *Client) RegisterUser(ctx context.Context, in RegisterInput) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, "registerUser", fasthttp.MethodPost, "/api/register", in, &out); err != nil {
		return "", err
	}
	c.SetToken(out.Token)
	return out.Token, nil
}

// GetPost fetches one post record by address.
func (c *Client) GetPost(ctx context.Context, address string) (*models.PostRecord, error) {
	var record models.PostRecord
	path := "/api/posts/" + url.PathEscape(address)
	if err := c.do(ctx, "getPost", fasthttp.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SetPost publishes a new post with binary media.
func (c *Client) SetPost(ctx context.Context, id string, media []byte, caption string, date time.Time) (bool, error) {
	body := map[string]interface{}{
		"id":      id,
		"img":     media,
		"caption": caption,
		"date":    date,
	}
	var out struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, "setPost", fasthttp.MethodPost, "/api/posts", body, &out); err != nil {
		return false, err
	}
	return out.OK, nil
}

// GetMessages fetches the full current message set for a conversation key.
func (c *Client) GetMessages(ctx context.Context, key identity.Key) ([]models.MessageGroup, error) {
	var groups []models.MessageGroup
	path := "/api/chats/" + url.PathEscape(string(key)) + "/messages"
	if err := c.do(ctx, "getMessages", fasthttp.MethodGet, path, nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// PostMessage appends a message to the conversation's stored sequence.
func (c *Client) PostMessage(ctx context.Context, key identity.Key, sender, text string, media []byte, date time.Time) (*models.MessageReceipt, error) {
	body := models.RawMessage{
		Sender:  sender,
		Message: text,
		Media:   media,
		Date:    date,
	}
	var receipt models.MessageReceipt
	path := "/api/chats/" + url.PathEscape(string(key)) + "/messages"
	if err := c.do(ctx, "postMessage", fasthttp.MethodPost, path, body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// SendFriendRequest asks another user for friendship and reserves a thread key.
func (c *Client) SendFriendRequest(ctx context.Context, username string, date time.Time, key identity.Key) (string, error) {
	return c.friendOp(ctx, "sendFriendRequest", "/api/friends/requests", username, date, key)
}

// AcceptFriendRequest accepts a pending friendship request.
func (c *Client) AcceptFriendRequest(ctx context.Context, username string, date time.Time, key identity.Key) (string, error) {
	return c.friendOp(ctx, "acceptFriendRequest", "/api/friends/accept", username, date, key)
}

func (c *Client) friendOp(ctx context.Context, op, path, username string, date time.Time, key identity.Key) (string, error) {
	body := map[string]interface{}{
		"username": username,
		"date":     date,
		"chatId":   string(key),
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, op, fasthttp.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// UnFollow removes a user from the follow list.
func (c *Client) UnFollow(ctx context.Context, username string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	path := "/api/friends/" + url.PathEscape(username)
	if err := c.do(ctx, "unFollow", fasthttp.MethodDelete, path, nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// SearchUsers returns account summaries matching a username substring.
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.AccountSummary, error) {
	var accounts []models.AccountSummary
	path := "/api/search?q=" + url.QueryEscape(query)
	if err := c.do(ctx, "searchUsers", fasthttp.MethodGet, path, nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// WhoAmI reports the identity bound to the current credential.
func (c *Client) WhoAmI(ctx context.Context) (*models.Identity, error) {
	var id models.Identity
	if err := c.do(ctx, "whoami", fasthttp.MethodGet, "/api/whoami", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

var _ Actor = (*Client)(nil)
