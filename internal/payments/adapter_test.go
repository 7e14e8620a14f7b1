package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/nexi"
)

func newNexiClient(t *testing.T, opts ...nexi.Option) *nexi.Client {
	t.Helper()
	client, err := nexi.NewClient("ALIAS_WEB_00012345", "s3cr3t", opts...)
	require.NoError(t, err)
	return client
}

func initiateRequest() InitiateRequest {
	return InitiateRequest{
		OrderID:       uuid.New(),
		OrderNumber:   "HO-261017-000042",
		Amount:        decimal.RequireFromString("1189.50"),
		Currency:      enums.CurrencyEUR,
		Description:   "Heizöl Premium 1500 l",
		CustomerEmail: "erika@example.de",
		ReturnURL:     "https://shop.example/checkout/success?order=HO-261017-000042",
		CancelURL:     "https://shop.example/payment/cancel?order=HO-261017-000042",
		Language:      "de",
	}
}

func TestInitiateBuildsTestSession(t *testing.T) {
	adapter, err := NewAdapter(newNexiClient(t), testLogger(), nil)
	require.NoError(t, err)
	adapter.suffix = func() (string, error) { return "ABCDEFGH", nil }

	req := initiateRequest()
	session, err := adapter.Initiate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "HO-261017-000042-ABCDEFGH", session.PaymentID)
	assert.Equal(t, req.OrderID, session.OrderID)
	assert.Equal(t, StatusInitiated, session.Status)
	assert.Equal(t, nexi.EnvironmentTest, session.Environment)
	assert.Equal(t, nexi.TestBaseURL, session.NexiBaseURL)
	assert.Equal(t, nexi.Integration, session.Integration)
	assert.Equal(t, TestModeAdvisory, session.Advisory)
	assert.Contains(t, session.FormHTML, `name="importo" value="118950"`)
	assert.Contains(t, session.FormHTML, `name="languageId" value="GER"`)
}

func TestInitiateLiveHasNoAdvisory(t *testing.T) {
	adapter, err := NewAdapter(newNexiClient(t, nexi.WithEnvironment("live")), testLogger(), nil)
	require.NoError(t, err)

	session, err := adapter.Initiate(context.Background(), initiateRequest())
	require.NoError(t, err)
	assert.Equal(t, nexi.EnvironmentLive, session.Environment)
	assert.Empty(t, session.Advisory)
	assert.Len(t, strings.TrimPrefix(session.PaymentID, "HO-261017-000042-"), 8)
	assert.LessOrEqual(t, len(session.PaymentID), 30)
}

func TestInitiateValidationAndGatewayFailure(t *testing.T) {
	adapter, err := NewAdapter(newNexiClient(t), testLogger(), nil)
	require.NoError(t, err)

	req := initiateRequest()
	req.Amount = decimal.Zero
	_, err = adapter.Initiate(context.Background(), req)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	failing, err := NewAdapter(failingGateway{Client: newNexiClient(t), err: assert.AnError}, testLogger(), nil)
	require.NoError(t, err)
	_, err = failing.Initiate(context.Background(), initiateRequest())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestCheckStatusReturnsNilOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter, err := NewAdapter(newNexiClient(t, nexi.WithBaseURL(server.URL)), testLogger(), nil)
	require.NoError(t, err)

	assert.Nil(t, adapter.CheckStatus(context.Background(), "HO-261017-000042-ABCDEFGH"))
	assert.Nil(t, adapter.CheckStatus(context.Background(), " "))
}

func TestCheckStatusReturnsGatewayState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"esito":"OK","report":[{"stato":"Autorizzato"}]}`))
	}))
	defer server.Close()

	adapter, err := NewAdapter(newNexiClient(t, nexi.WithBaseURL(server.URL)), testLogger(), nil)
	require.NoError(t, err)

	status := adapter.CheckStatus(context.Background(), "HO-261017-000042-ABCDEFGH")
	require.NotNil(t, status)
	assert.Equal(t, "OK", status.Outcome)
	assert.Equal(t, "Autorizzato", status.Status)
}

func TestAmountCents(t *testing.T) {
	cases := map[string]int64{
		"1189.50": 118950,
		"0.005":   1,
		"19.994":  1999,
		"100":     10000,
	}
	for raw, want := range cases {
		assert.Equal(t, want, AmountCents(decimal.RequireFromString(raw)), raw)
	}
}
