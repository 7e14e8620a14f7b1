package invoicefn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

func TestGenerateSendsContext(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fn-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"invoiceNumber":"RE-2026-0001","htmlContent":"<html>invoice</html>"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, WithAPIKey("fn-key"), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	shop := "belgium"
	doc, err := client.Generate(context.Background(), Request{OrderID: "order-1", ShopID: &shop})
	require.NoError(t, err)
	assert.Equal(t, "RE-2026-0001", doc.InvoiceNumber)
	assert.Equal(t, "<html>invoice</html>", doc.HTMLContent)
	assert.Equal(t, "order-1", got["orderId"])
	assert.Equal(t, "belgium", got["shopId"])
	_, hasBank := got["bankAccountId"]
	assert.False(t, hasBank)
}

func TestGenerateFunctionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"order not found"}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{OrderID: "missing"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Contains(t, err.Error(), "order not found")
}

func TestGenerateHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{OrderID: "o"})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestGenerateValidation(t *testing.T) {
	_, err := NewClient(" ")
	assert.Error(t, err)

	client, err := NewClient("http://unused.test")
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), Request{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
