package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// User is the API view of a stored record. The server never sends the
// password hash, so it has no field here.
type User struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	State    json.RawMessage `json:"state"`
}

// Client talks to the botkeeper HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SetToken attaches an access token to every following request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// apiError carries the server's message for non-2xx responses.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// do issues a request with a JSON body (may be nil) and decodes the JSON
// response into out (may be nil). Non-2xx responses become an *apiError
// carrying the server's message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Message == "" {
			payload.Message = resp.Status
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Message}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) Register(ctx context.Context, username, email, password, confirmPassword string) error {
	body := map[string]string{
		"username":        username,
		"email":           email,
		"password":        password,
		"confirmPassword": confirmPassword,
	}
	return c.do(ctx, http.MethodPost, "/register", body, nil)
}

// Login authenticates and returns the user together with the access token.
func (c *Client) Login(ctx context.Context, email, password string) (*User, string, error) {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		User        User   `json:"user"`
		AccessToken string `json:"accessToken"`
	}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return nil, "", err
	}
	return &out.User, out.AccessToken, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

func (c *Client) GetUser(ctx context.Context, email string) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(email), nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) ReplaceState(ctx context.Context, email string, state json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(state) {
		return nil, errors.New("state must be valid JSON")
	}
	var out struct {
		State json.RawMessage `json:"state"`
	}
	path := "/users/" + url.PathEscape(email) + "/updateState"
	if err := c.do(ctx, http.MethodPut, path, json.RawMessage(state), &out); err != nil {
		return nil, err
	}
	return out.State, nil
}

func (c *Client) AddActiveBot(ctx context.Context, email string, bot json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(bot) {
		return nil, errors.New("bot must be valid JSON")
	}
	var out struct {
		Bot json.RawMessage `json:"bot"`
	}
	path := "/users/" + url.PathEscape(email) + "/addActiveBot"
	if err := c.do(ctx, http.MethodPost, path, json.RawMessage(bot), &out); err != nil {
		return nil, err
	}
	return out.Bot, nil
}

func (c *Client) MoveBot(ctx context.Context, email, botID string) (json.RawMessage, error) {
	var out struct {
		MovedBot json.RawMessage `json:"movedBot"`
	}
	path := "/users/" + url.PathEscape(email) + "/moveBot/" + url.PathEscape(botID)
	if err := c.do(ctx, http.MethodPut, path, nil, &out); err != nil {
		return nil, err
	}
	return out.MovedBot, nil
}

func (c *Client) DeleteUser(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(email), nil, nil)
}
