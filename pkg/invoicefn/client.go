// Package invoicefn calls the hosted invoice document function.
package invoicefn

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

	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

const responseReadLimit int64 = 4 << 20

var errURLRequired = errors.New("invoice function url is required")

// Client posts generation requests to the invoice function.
type Client struct {
	httpClient *http.Client
	url        string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// NewClient builds a client for the function endpoint.
func NewClient(url string, opts ...Option) (*Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errURLRequired
	}
	client := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Request identifies the order and the context to print on the invoice.
type Request struct {
	OrderID       string  `json:"orderId"`
	ShopID        *string `json:"shopId,omitempty"`
	BankAccountID *string `json:"bankAccountId,omitempty"`
}

// Document is a generated invoice.
type Document struct {
	InvoiceNumber string
	HTMLContent   string
}

type response struct {
	Success       bool   `json:"success"`
	InvoiceNumber string `json:"invoiceNumber"`
	HTMLContent   string `json:"htmlContent"`
	Error         string `json:"error"`
}

// Generate asks the function to number and render an invoice.
func (c *Client) Generate(ctx context.Context, req Request) (*Document, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice function not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal invoice request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build invoice request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute invoice request")
	}
	defer func() { _ = resp.Body.Close() }()

	var body response
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, responseReadLimit)).Decode(&body)
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(body.Error)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, msg), "invoice generation failed")
	}
	if decodeErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, decodeErr, "decode invoice response")
	}
	if !body.Success {
		msg := strings.TrimSpace(body.Error)
		if msg == "" {
			msg = "unknown error"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice generation failed: "+msg)
	}
	if body.InvoiceNumber == "" || body.HTMLContent == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice response missing number or content")
	}
	return &Document{InvoiceNumber: body.InvoiceNumber, HTMLContent: body.HTMLContent}, nil
}
