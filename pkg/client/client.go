package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client calls the EcoSync REST API. Authenticated calls use the token held
// by its Session.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	session    *Session
}

func New(baseURL string, session *Session) *Client {
	if session == nil {
		session = NewSession("")
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		session: session,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ecosync api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ecosync api: status %d: %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  map[string]string `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.BaseURL + "/api" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && err != io.EOF {
		return fmt.Errorf("ecosync api: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg, Fields: env.Errors}
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type pointsRequest struct {
	Points int `json:"points"`
}

func pathID(prefix, id string) string {
	return prefix + "/" + url.PathEscape(id)
}

func nearbyQuery(lng, lat, maxDistance float64) url.Values {
	q := url.Values{}
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	if maxDistance > 0 {
		q.Set("maxDistance", strconv.FormatFloat(maxDistance, 'f', -1, 64))
	}
	return q
}

// Auth

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	c.session.Set(out.Token, &out.User)
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := loginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.session.Set(out.Token, &out.User)
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the server and forgets the token either way.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	c.session.Clear()
	return err
}

// Items

func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var out []Item
	err := c.do(ctx, http.MethodGet, "/items", nil, nil, &out)
	return out, err
}

func (c *Client) NearbyItems(ctx context.Context, lng, lat, maxDistance float64, category string) ([]Item, error) {
	q := nearbyQuery(lng, lat, maxDistance)
	if category != "" {
		q.Set("category", category)
	}
	var out []Item
	err := c.do(ctx, http.MethodGet, "/items/nearby", q, nil, &out)
	return out, err
}

func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var out Item
	if err := c.do(ctx, http.MethodGet, pathID("/items", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateItem(ctx context.Context, req CreateItemRequest) (*Item, error) {
	var out Item
	if err := c.do(ctx, http.MethodPost, "/items", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, req UpdateItemRequest) (*Item, error) {
	var out Item
	if err := c.do(ctx, http.MethodPatch, pathID("/items", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathID("/items", id), nil, nil, nil)
}

// Requests

func (c *Client) ListRequests(ctx context.Context) ([]Request, error) {
	var out []Request
	err := c.do(ctx, http.MethodGet, "/requests", nil, nil, &out)
	return out, err
}

func (c *Client) NearbyRequests(ctx context.Context, lng, lat, maxDistance float64) ([]Request, error) {
	var out []Request
	err := c.do(ctx, http.MethodGet, "/requests/nearby", nearbyQuery(lng, lat, maxDistance), nil, &out)
	return out, err
}

func (c *Client) CreateRequest(ctx context.Context, req CreateRequestRequest) (*Request, error) {
	var out Request
	if err := c.do(ctx, http.MethodPost, "/requests", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRequestStatus(ctx context.Context, id, status string) (*Request, error) {
	var out Request
	body := statusRequest{Status: status}
	if err := c.do(ctx, http.MethodPatch, pathID("/requests", id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRequest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, pathID("/requests", id), nil, nil, nil)
}

// Users

func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, pathID("/users", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPatch, pathID("/users", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePoints(ctx context.Context, id string, delta int) (*Points, error) {
	var out Points
	body := pointsRequest{Points: delta}
	if err := c.do(ctx, http.MethodPatch, pathID("/users", id)+"/points", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []LeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/users/leaderboard", q, nil, &out)
	return out, err
}

// Transactions

func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	var out []Transaction
	err := c.do(ctx, http.MethodGet, "/transactions", nil, nil, &out)
	return out, err
}

func (c *Client) UserTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	var out []Transaction
	err := c.do(ctx, http.MethodGet, pathID("/transactions/user", userID), nil, nil, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, req UpdateTransactionRequest) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodPatch, pathID("/transactions", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CompleteTransaction(ctx context.Context, id string) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodPost, pathID("/transactions", id)+"/complete", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RateTransaction(ctx context.Context, id string, req RateTransactionRequest) (*Transaction, error) {
	var out Transaction
	if err := c.do(ctx, http.MethodPatch, pathID("/transactions", id)+"/rate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
