// Package api is the HTTP client for the FINDEMY backend. All list
// endpoints answer with a {success, message, data} envelope and require
// a bearer token issued by POST /login.
package api

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

	logx "findemybot/pkg/logx"
)

var ErrUnauthorized = errors.New("api: unauthorized")

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is safe for concurrent use. The token may be replaced at any
// time (re-login after expiry).
type Client struct {
	base string
	http *http.Client
	log  logx.Logger

	mu    sync.RWMutex
	token string
}

func New(cfg Config, log logx.Logger) *Client {
	if log.IsZero() {
		log = logx.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// SetToken installs a session token, e.g. one restored from storage.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login authenticates and installs the returned token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/login", bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return LoginResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return LoginResult{}, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return LoginResult{}, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LoginResult{}, fmt.Errorf("api: login failed: %s", statusMessage(resp.StatusCode, raw))
	}

	var out struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		User    User   `json:"user"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return LoginResult{}, fmt.Errorf("api: decode login response: %w", err)
	}
	if out.Token == "" {
		return LoginResult{}, errors.New("api: login response carried no token")
	}
	c.SetToken(out.Token)
	return LoginResult{Token: out.Token, User: out.User}, nil
}

// Schedules fetches the weekly class list.
func (c *Client) Schedules(ctx context.Context) ([]Jadwal, error) {
	var out []Jadwal
	if err := c.getList(ctx, "/jadwal", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tasks fetches the task list.
func (c *Client) Tasks(ctx context.Context) ([]Tugas, error) {
	var out []Tugas
	if err := c.getList(ctx, "/tugas", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Events fetches the event list.
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	var out []Event
	if err := c.getList(ctx, "/event", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getList(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("api: GET %s: %s", path, statusMessage(resp.StatusCode, raw))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("api: decode %s response: %w", path, err)
	}
	if !env.Success {
		return fmt.Errorf("api: GET %s rejected: %s", path, env.Message)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("api: decode %s data: %w", path, err)
	}
	return nil
}

func statusMessage(code int, raw []byte) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != "" {
		return fmt.Sprintf("%d %s", code, env.Message)
	}
	return http.StatusText(code)
}
