// Package commerce is a client for the storefront REST API (Sellix-shaped): order
// lookup, feedback listing and product catalog retrieval.
package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/goatkit/warrantyflow/internal/models"
)

// DefaultBaseURL is the storefront API root.
const DefaultBaseURL = "https://dev.sellix.io/v1"

// Options configure a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond paces outgoing calls; zero disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Client calls the storefront API. Every call is a single attempt.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a storefront client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: &http.Client{Timeout: timeout},
	}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return c
}

// envelope is the common response wrapper. Sellix reports some failures with
// HTTP 200 and a status field in the body.
type envelope struct {
	Status int             `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: %v", models.ErrUpstream, path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", models.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", models.ErrNotFound, path)
	}
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: GET %s failed with %d: %s", models.ErrUpstream, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %v", models.ErrUpstream, path, err)
	}
	switch {
	case env.Status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, path)
	case env.Status >= 300:
		return fmt.Errorf("%w: %s returned status %d: %s", models.ErrUpstream, path, env.Status, env.Error)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s returned no data", models.ErrUpstream, path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: malformed data from %s: %v", models.ErrUpstream, path, err)
	}
	return nil
}

type orderPayload struct {
	UniqID        string      `json:"uniqid"`
	ProductID     string      `json:"product_id"`
	ProductTitle  string      `json:"product_title"`
	Quantity      int         `json:"quantity"`
	Total         json.Number `json:"total"`
	Currency      string      `json:"currency"`
	CustomerEmail string      `json:"customer_email"`
	CreatedAt     int64       `json:"created_at"`
}

// GetOrder fetches one order. Unknown ids fail with ErrNotFound.
func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var data struct {
		Order *orderPayload `json:"order"`
	}
	if err := c.get(ctx, "/orders/"+url.PathEscape(id), &data); err != nil {
		return nil, err
	}
	if data.Order == nil {
		return nil, fmt.Errorf("%w: order %s", models.ErrNotFound, id)
	}
	total, err := data.Order.Total.Float64()
	if err != nil && data.Order.Total != "" {
		return nil, fmt.Errorf("%w: order %s has invalid total %q", models.ErrUpstream, id, data.Order.Total)
	}
	orderID := data.Order.UniqID
	if orderID == "" {
		orderID = id
	}
	return &models.Order{
		ID:            orderID,
		ProductID:     data.Order.ProductID,
		ProductTitle:  data.Order.ProductTitle,
		Quantity:      data.Order.Quantity,
		TotalPrice:    total,
		Currency:      data.Order.Currency,
		CustomerEmail: data.Order.CustomerEmail,
		CreatedAt:     time.Unix(data.Order.CreatedAt, 0).UTC(),
	}, nil
}

// ListFeedback returns every feedback entry of the shop.
func (c *Client) ListFeedback(ctx context.Context) ([]models.Feedback, error) {
	var data struct {
		Feedback []struct {
			InvoiceID string `json:"invoice_id"`
			Score     int    `json:"score"`
		} `json:"feedback"`
	}
	if err := c.get(ctx, "/feedback", &data); err != nil {
		return nil, err
	}
	out := make([]models.Feedback, 0, len(data.Feedback))
	for _, f := range data.Feedback {
		out = append(out, models.Feedback{InvoiceID: f.InvoiceID, Score: f.Score})
	}
	return out, nil
}

// ListProducts returns the shop catalog.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var data struct {
		Products []struct {
			UniqID string `json:"uniqid"`
			Title  string `json:"title"`
		} `json:"products"`
	}
	if err := c.get(ctx, "/products", &data); err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(data.Products))
	for _, p := range data.Products {
		out = append(out, models.Product{ID: p.UniqID, Title: p.Title})
	}
	return out, nil
}
