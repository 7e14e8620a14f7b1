package payments

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/nexi"
)

// TestModeAdvisory is shown whenever the gateway runs against its test environment.
const TestModeAdvisory = "Testmodus: Bitte verwenden Sie ausschließlich Testkarten."

const (
	StatusInitiated = "initiated"

	transactionSuffixLen = 8
	transactionAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Gateway is the hosted payment page provider.
type Gateway interface {
	Environment() string
	BaseURL() string
	BuildHostedPaymentForm(req nexi.HostedPaymentRequest) (*nexi.HostedPaymentForm, error)
	QueryStatus(ctx context.Context, transactionCode string) (*nexi.OrderStatus, error)
}

// InitiateRequest opens one payment attempt for an order.
type InitiateRequest struct {
	OrderID       uuid.UUID
	OrderNumber   string
	Amount        decimal.Decimal
	Currency      enums.Currency
	Description   string
	CustomerEmail string
	ReturnURL     string
	CancelURL     string
	Language      string
}

// PaymentSession is the transient result of a successful initiation.
type PaymentSession struct {
	PaymentID   string          `json:"paymentId"`
	OrderID     uuid.UUID       `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    enums.Currency  `json:"currency"`
	Status      string          `json:"status"`
	FormHTML    string          `json:"formHtml"`
	Environment string          `json:"environment"`
	NexiBaseURL string          `json:"nexiBaseUrl"`
	Integration string          `json:"integration"`
	Advisory    string          `json:"advisory,omitempty"`
}

// StatusResult is the diagnostic answer of a status poll.
type StatusResult struct {
	PaymentID string `json:"paymentId"`
	Outcome   string `json:"outcome"`
	Status    string `json:"status"`
	Raw       []byte `json:"-"`
}

// Adapter drives the gateway's initiate and status protocol.
type Adapter struct {
	gateway Gateway
	logg    *logger.Logger
	metrics *metrics.OrderMetrics
	suffix  func() (string, error)
}

// NewAdapter wraps a gateway client.
func NewAdapter(gateway Gateway, logg *logger.Logger, m *metrics.OrderMetrics) (*Adapter, error) {
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Adapter{gateway: gateway, logg: logg, metrics: m, suffix: randomSuffix}, nil
}

// Environment reports whether the gateway runs in test or live mode.
func (a *Adapter) Environment() string {
	return a.gateway.Environment()
}

// Initiate builds the signed hosted payment form. Nothing is persisted here.
func (a *Adapter) Initiate(ctx context.Context, req InitiateRequest) (*PaymentSession, error) {
	env := a.gateway.Environment()
	if req.OrderID == uuid.Nil || strings.TrimSpace(req.OrderNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = enums.CurrencyEUR
	}

	suffix, err := a.suffix()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate transaction code")
	}
	code := strings.TrimSpace(req.OrderNumber) + "-" + suffix

	started := time.Now()
	form, err := a.gateway.BuildHostedPaymentForm(nexi.HostedPaymentRequest{
		TransactionCode: code,
		AmountCents:     AmountCents(req.Amount),
		Currency:        string(currency),
		Description:     req.Description,
		CustomerEmail:   req.CustomerEmail,
		SuccessURL:      req.ReturnURL,
		CancelURL:       req.CancelURL,
		LanguageID:      nexi.LanguageID(req.Language),
	})
	a.metrics.ObserveGateway("initiate", time.Since(started))
	if err != nil {
		a.metrics.IncPayment(env, "failed")
		a.logg.Error(a.logg.WithOrderNumber(ctx, req.OrderNumber), "payment initiation failed", err)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment initiation failed")
	}
	a.metrics.IncPayment(env, "initiated")

	session := &PaymentSession{
		PaymentID:   code,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    currency,
		Status:      StatusInitiated,
		FormHTML:    form.HTML,
		Environment: env,
		NexiBaseURL: a.gateway.BaseURL(),
		Integration: nexi.Integration,
	}
	if env == nexi.EnvironmentTest {
		session.Advisory = TestModeAdvisory
	}
	return session, nil
}

// CheckStatus is best effort: any failure is logged and yields nil.
func (a *Adapter) CheckStatus(ctx context.Context, paymentID string) *StatusResult {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil
	}
	started := time.Now()
	status, err := a.gateway.QueryStatus(ctx, paymentID)
	a.metrics.ObserveGateway("status", time.Since(started))
	if err != nil {
		a.logg.Warn(a.logg.WithFields(ctx, map[string]any{
			"payment_id": paymentID,
			"error":      err.Error(),
		}), "payment status unavailable")
		return nil
	}
	if status == nil {
		return nil
	}
	return &StatusResult{
		PaymentID: paymentID,
		Outcome:   status.Outcome,
		Status:    status.Status,
		Raw:       status.Raw,
	}
}

// AmountCents converts a decimal amount into minor units, rounding half away from zero.
func AmountCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func randomSuffix() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(transactionAlphabet)))
	for i := 0; i < transactionSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(transactionAlphabet[n.Int64()])
	}
	return b.String(), nil
}
