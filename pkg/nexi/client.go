// Package nexi talks to the Nexi XPay hosted payment page and back-office status API.
package nexi

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

const (
	EnvironmentTest = "test"
	EnvironmentLive = "live"

	TestBaseURL = "https://int-ecommerce.nexi.it"
	LiveBaseURL = "https://ecommerce.nexi.it"

	hostedPagePath = "/ecomm/ecomm/DispatcherServlet"
	statusPath     = "/ecomm/api/bo/situazioneOrdine"

	// Integration names the flow the form drives.
	Integration = "hpp"

	responseReadLimit int64 = 1024
	maxCodTransLen          = 30
)

var (
	errAliasRequired  = errors.New("nexi alias is required")
	errSecretRequired = errors.New("nexi secret key is required")
)

// Client signs hosted payment forms and queries order status.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	alias       string
	secretKey   string
	environment string
	now         func() time.Time
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

// WithBaseURL overrides the environment's default host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithEnvironment selects test or live; anything else falls back to test.
func WithEnvironment(env string) Option {
	return func(c *Client) {
		if strings.EqualFold(strings.TrimSpace(env), EnvironmentLive) {
			c.environment = EnvironmentLive
		}
	}
}

// WithClock overrides the time source used for API timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a Nexi client for the merchant alias.
func NewClient(alias, secretKey string, opts ...Option) (*Client, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, errAliasRequired
	}
	if strings.TrimSpace(secretKey) == "" {
		return nil, errSecretRequired
	}

	client := &Client{
		alias:       alias,
		secretKey:   secretKey,
		environment: EnvironmentTest,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		client.baseURL = TestBaseURL
		if client.environment == EnvironmentLive {
			client.baseURL = LiveBaseURL
		}
	}
	return client, nil
}

// Environment reports test or live.
func (c *Client) Environment() string {
	return c.environment
}

// BaseURL returns the gateway host the forms post to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HostedPaymentRequest describes one payment attempt.
type HostedPaymentRequest struct {
	TransactionCode string
	AmountCents     int64
	Currency        string
	Description     string
	CustomerEmail   string
	SuccessURL      string
	CancelURL       string
	LanguageID      string
}

// FormField is one hidden input of the redirect form, in submission order.
type FormField struct {
	Name  string
	Value string
}

// HostedPaymentForm is the signed redirect form for the hosted payment page.
type HostedPaymentForm struct {
	Action string
	Fields []FormField
	HTML   string
}

// BuildHostedPaymentForm validates the request, signs it and renders the auto-submit form.
func (c *Client) BuildHostedPaymentForm(req HostedPaymentRequest) (*HostedPaymentForm, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nexi client not configured")
	}
	code := strings.TrimSpace(req.TransactionCode)
	switch {
	case code == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction code is required")
	case len(code) > maxCodTransLen:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction code exceeds 30 characters")
	case req.AmountCents <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	case strings.TrimSpace(req.SuccessURL) == "" || strings.TrimSpace(req.CancelURL) == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return and cancel urls are required")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "EUR"
	}
	amount := strconv.FormatInt(req.AmountCents, 10)

	fields := []FormField{
		{Name: "alias", Value: c.alias},
		{Name: "importo", Value: amount},
		{Name: "divisa", Value: currency},
		{Name: "codTrans", Value: code},
		{Name: "url", Value: req.SuccessURL},
		{Name: "url_back", Value: req.CancelURL},
	}
	if email := strings.TrimSpace(req.CustomerEmail); email != "" {
		fields = append(fields, FormField{Name: "mail", Value: email})
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		fields = append(fields, FormField{Name: "descrizione", Value: desc})
	}
	if lang := strings.TrimSpace(req.LanguageID); lang != "" {
		fields = append(fields, FormField{Name: "languageId", Value: lang})
	}
	fields = append(fields, FormField{Name: "mac", Value: c.sign("codTrans=" + code + "divisa=" + currency + "importo=" + amount)})

	form := &HostedPaymentForm{
		Action: c.baseURL + hostedPagePath,
		Fields: fields,
	}
	html, err := renderForm(form)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render payment form")
	}
	form.HTML = html
	return form, nil
}

// OrderStatus is the normalized answer of the back-office status API.
type OrderStatus struct {
	Outcome string
	Status  string
	Raw     json.RawMessage
}

// QueryStatus asks the gateway for the state of a transaction code.
func (c *Client) QueryStatus(ctx context.Context, transactionCode string) (*OrderStatus, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "nexi client not configured")
	}
	code := strings.TrimSpace(transactionCode)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction code is required")
	}

	ts := strconv.FormatInt(c.now().UnixMilli(), 10)
	payload, err := json.Marshal(map[string]string{
		"apiKey":            c.alias,
		"codiceTransazione": code,
		"timeStamp":         ts,
		"mac":               c.sign("apiKey=" + c.alias + "codiceTransazione=" + code + "timeStamp=" + ts),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal status request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+statusPath, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build status request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute status request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "status request failed")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read status response")
	}
	var apiResp struct {
		Esito  string `json:"esito"`
		Report []struct {
			Stato string `json:"stato"`
		} `json:"report"`
		Errore *struct {
			Codice    int    `json:"codice"`
			Messaggio string `json:"messaggio"`
		} `json:"errore"`
	}
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode status response")
	}
	if !strings.EqualFold(apiResp.Esito, "OK") {
		msg := "gateway rejected status query"
		if apiResp.Errore != nil && apiResp.Errore.Messaggio != "" {
			msg = fmt.Sprintf("%s: %d %s", msg, apiResp.Errore.Codice, apiResp.Errore.Messaggio)
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	status := &OrderStatus{Outcome: apiResp.Esito, Raw: json.RawMessage(raw)}
	if len(apiResp.Report) > 0 {
		status.Status = apiResp.Report[0].Stato
	}
	return status, nil
}

func (c *Client) sign(payload string) string {
	sum := sha1.Sum([]byte(payload + c.secretKey))
	return hex.EncodeToString(sum[:])
}
