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
	"sync"
	"time"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/dmitrijs2005/taskmate/internal/server/models"
	"github.com/dmitrijs2005/taskmate/internal/snapshot"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.currentToken(); tok != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error      string                  `json:"error"`
		Violations []common.FieldViolation `json:"violations"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = strings.TrimSpace(string(raw))
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Error, Violations: payload.Violations}
}

// Login exchanges an identity provider credential for a session and keeps
// its token for later calls.
func (c *HTTPClient) Login(ctx context.Context, credential string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"credential": credential}, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

func (c *HTTPClient) Refresh(ctx context.Context) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", nil, &s); err != nil {
		return nil, err
	}
	c.SetToken(s.Token)
	return &s, nil
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.SetToken("")
	return err
}

func (c *HTTPClient) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *HTTPClient) Upload(ctx context.Context, snap *snapshot.Snapshot) (*UploadResult, error) {
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}
	var res UploadResult
	if err := c.do(ctx, http.MethodPost, "/api/sync/upload", newUploadPayload(snap), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// uploadPayload omits preferences the caller did not set and never sends
// null collections.
type uploadPayload struct {
	Tasks         []snapshot.Task         `json:"tasks"`
	Conversations []snapshot.Conversation `json:"conversations"`
	Preferences   *models.Preferences     `json:"preferences,omitempty"`
}

func newUploadPayload(snap *snapshot.Snapshot) uploadPayload {
	p := uploadPayload{
		Tasks:         make([]snapshot.Task, 0, len(snap.Tasks)),
		Conversations: make([]snapshot.Conversation, 0, len(snap.Conversations)),
	}
	for _, t := range snap.Tasks {
		if t.Tags == nil {
			t.Tags = []string{}
		}
		p.Tasks = append(p.Tasks, t)
	}
	for _, c := range snap.Conversations {
		if c.Messages == nil {
			c.Messages = []snapshot.Message{}
		}
		p.Conversations = append(p.Conversations, c)
	}
	if snap.Preferences != nil {
		prefs := snap.Preferences
		p.Preferences = &prefs
	}
	return p
}

func (c *HTTPClient) Download(ctx context.Context) (*snapshot.Snapshot, error) {
	var snap snapshot.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/sync/download", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SyncPreferences sends the local set and returns the merged one.
func (c *HTTPClient) SyncPreferences(ctx context.Context, local models.Preferences) (models.Preferences, error) {
	if local == nil {
		local = models.Preferences{}
	}
	var out struct {
		Preferences models.Preferences `json:"preferences"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sync/preferences", map[string]any{"preferences": local}, &out); err != nil {
		return nil, err
	}
	return out.Preferences, nil
}
