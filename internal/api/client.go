// Package api is the thin wrapper over the storefront REST backend. It
// owns bearer-token attachment, 401 handling and response decoding; all
// field-name tolerance lives in internal/normalize, nowhere else.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"bakehouse/internal/domain"
	"bakehouse/internal/normalize"
)

// ErrUnauthorized marks a 401 after the unauthorized hook has run.
var ErrUnauthorized = errors.New("unauthorized")

// TokenSource supplies the current bearer token; empty means guest.
type TokenSource func() string

type Client struct {
	base  string
	http  *http.Client
	token TokenSource

	// OnUnauthorized runs once per 401 response, before the error is
	// returned. The session store hooks this to clear itself.
	OnUnauthorized func()
}

func NewClient(base string, timeout time.Duration, token TokenSource) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: timeout},
		token: token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request")
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: read body", method, path)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.New(serverMessage(data, resp.StatusCode))
	}
	return data, nil
}

// serverMessage prefers the backend's own message over a bare status code.
func serverMessage(body []byte, status int) string {
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		for _, k := range []string{"error", "message", "detail"} {
			if s, ok := m[k].(string); ok && s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func decodeObject(data []byte) (normalize.Raw, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return m, nil
}

// decodeList tolerates both a bare array and an {"items"/"orders"/
// "products"/"data": [...]} envelope.
func decodeList(data []byte) ([]any, error) {
	var arr []any
	if err := json.Unmarshal(data, &arr); err == nil {
		return arr, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	for _, k := range []string{"items", "orders", "products", "data"} {
		if v, ok := m[k].([]any); ok {
			return v, nil
		}
	}
	return nil, errors.New("decode response: no list found")
}

// ---------- Auth ----------

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Login returns the authenticated user and bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (domain.User, string, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", creds)
	if err != nil {
		return domain.User{}, "", err
	}
	return userAndToken(data)
}

func (c *Client) Register(ctx context.Context, reg Registration) (domain.User, string, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/register", reg)
	if err != nil {
		return domain.User{}, "", err
	}
	return userAndToken(data)
}

func userAndToken(data []byte) (domain.User, string, error) {
	m, err := decodeObject(data)
	if err != nil {
		return domain.User{}, "", err
	}
	tok, _ := m["token"].(string)
	if tok == "" {
		tok, _ = m["access_token"].(string)
	}
	return normalize.User(m), tok, nil
}

// ---------- Products ----------

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	arr, err := decodeList(data)
	if err != nil {
		return nil, err
	}
	return normalize.Products(arr), nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/products/"+id, nil)
	if err != nil {
		return domain.Product{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Product{}, err
	}
	return normalize.Product(m), nil
}

func (c *Client) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	data, err := c.do(ctx, http.MethodPut, "/products/"+p.ID, p)
	if err != nil {
		return domain.Product{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Product{}, err
	}
	return normalize.Product(m), nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/products/"+id, nil)
	return err
}

// ---------- Orders ----------

// MyOrders lists the caller's orders; AllOrders is the admin board feed.
func (c *Client) MyOrders(ctx context.Context) ([]domain.Order, error) {
	return c.fetchOrders(ctx, "/orders")
}

func (c *Client) AllOrders(ctx context.Context) ([]domain.Order, error) {
	return c.fetchOrders(ctx, "/orders/all")
}

func (c *Client) fetchOrders(ctx context.Context, path string) ([]domain.Order, error) {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	arr, err := decodeList(data)
	if err != nil {
		return nil, err
	}
	return normalize.Orders(arr), nil
}

func (c *Client) CreateOrder(ctx context.Context, payload domain.CheckoutPayload) (domain.Order, error) {
	data, err := c.do(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return domain.Order{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Order{}, err
	}
	return normalize.Order(m), nil
}

type statusPatch struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

func (c *Client) PatchOrderStatus(ctx context.Context, id string, status domain.Status, reason string) error {
	_, err := c.do(ctx, http.MethodPatch, "/orders/"+id+"/status", statusPatch{Status: string(status), Reason: reason})
	return err
}

func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/orders/"+id, nil)
	return err
}

// ---------- Profile ----------

func (c *Client) Profile(ctx context.Context) (domain.Customer, error) {
	data, err := c.do(ctx, http.MethodGet, "/users/profile", nil)
	if err != nil {
		return domain.Customer{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Customer{}, err
	}
	return normalize.Customer(m), nil
}

func (c *Client) UpdateProfile(ctx context.Context, cu domain.Customer) (domain.Customer, error) {
	data, err := c.do(ctx, http.MethodPut, "/users/profile", cu)
	if err != nil {
		return domain.Customer{}, err
	}
	m, err := decodeObject(data)
	if err != nil {
		return domain.Customer{}, err
	}
	return normalize.Customer(m), nil
}

// ---------- Stream ----------

// OpenStream opens the long-lived order status stream. The caller owns
// the returned body and must close it; cancelling ctx aborts the
// connection. No timeout applies — the stream is meant to stay open.
func (c *Client) OpenStream(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/orders/stream", nil)
	if err != nil {
		return nil, errors.Wrap(err, "build stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	// A fresh client without the request timeout: the shared one would
	// kill the stream after HTTPTimeout.
	streamClient := &http.Client{Transport: c.http.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "open stream")
	}
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if c.OnUnauthorized != nil {
			c.OnUnauthorized()
		}
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, errors.New(serverMessage(data, resp.StatusCode))
	}
	return resp.Body, nil
}
