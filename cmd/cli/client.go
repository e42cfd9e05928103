package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/and161185/taskkeeper/internal/convert"
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status  int
	Message string
	Field   string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

type client struct {
	base  string
	http  *http.Client
	token string
}

func newClient(base, token string, hc *http.Client) *client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &client{base: strings.TrimRight(base, "/"), http: hc, token: token}
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
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

	if resp.StatusCode/100 != 2 {
		var m convert.MessageResponse
		_ = json.NewDecoder(resp.Body).Decode(&m)
		return &apiError{Status: resp.StatusCode, Message: m.Message, Field: m.Field}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) register(ctx context.Context, r convert.RegisterRequest) (convert.AuthResponse, error) {
	var out convert.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", r, &out)
	return out, err
}

func (c *client) login(ctx context.Context, r convert.LoginRequest) (convert.AuthResponse, error) {
	var out convert.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", r, &out)
	return out, err
}

func (c *client) me(ctx context.Context) (convert.UserEnvelope, error) {
	var out convert.UserEnvelope
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

func (c *client) updateProfile(ctx context.Context, r convert.ProfileRequest) (convert.UserEnvelope, error) {
	var out convert.UserEnvelope
	err := c.do(ctx, http.MethodPut, "/api/users/profile", r, &out)
	return out, err
}

func (c *client) changePassword(ctx context.Context, r convert.PasswordRequest) error {
	return c.do(ctx, http.MethodPut, "/api/users/change-password", r, nil)
}

func (c *client) listTasks(ctx context.Context, q url.Values) (convert.TaskListResponse, error) {
	var out convert.TaskListResponse
	path := "/api/tasks"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *client) stats(ctx context.Context) (convert.StatsResponse, error) {
	var out convert.StatsResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks/stats", nil, &out)
	return out, err
}

func (c *client) createTask(ctx context.Context, r convert.TaskRequest) (convert.TaskEnvelope, error) {
	var out convert.TaskEnvelope
	err := c.do(ctx, http.MethodPost, "/api/tasks", r, &out)
	return out, err
}

func (c *client) updateTask(ctx context.Context, id string, r convert.TaskRequest) (convert.TaskEnvelope, error) {
	var out convert.TaskEnvelope
	err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), r, &out)
	return out, err
}

func (c *client) deleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}
