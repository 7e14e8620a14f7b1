package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key], _ = value.(string)
	f.ttl[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func post(path, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	return payload.Error.Code
}

func TestIdempotentRequiresKeyWhenPolicySaysSo(t *testing.T) {
	called := false
	handler := Idempotent(newFakeStore(), nil, CheckoutIdempotency)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, post("/api/v1/checkout", "", `{"liters":1500}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotentOptionalPolicyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotent(store, nil, AdminIdempotency)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), post("/api/admin/v1/orders/HO-1/invoice", "", ""))
	}
	if calls != 2 || len(store.data) != 0 {
		t.Fatalf("expected two untracked runs, got calls=%d records=%d", calls, len(store.data))
	}
}

func TestIdempotentReplaysCompletedResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotent(store, nil, CheckoutIdempotency)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_number":"HO-260301-000001"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, post("/api/v1/checkout", "abc", `{"liters":1500}`))
	if first.Code != http.StatusCreated || first.Header().Get(ReplayedHeader) != "" {
		t.Fatalf("unexpected first response %d %v", first.Code, first.Header())
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, post("/api/v1/checkout", "abc", `{"liters":1500}`))
	if replay.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" || replay.Header().Get(ReplayedHeader) != "true" {
		t.Fatalf("unexpected replay headers %v", replay.Header())
	}
	if replay.Body.String() != `{"order_number":"HO-260301-000001"}` {
		t.Fatalf("expected stored body got %s", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
	for key, ttl := range store.ttl {
		if ttl != CheckoutIdempotency.TTL {
			t.Fatalf("record %s stored with ttl %v", key, ttl)
		}
	}
}

func TestIdempotentRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotent(store, nil, PaymentIdempotency)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = httptest.NewRecorder()
		handler.ServeHTTP(inner, post("/api/v1/orders/HO-1/payment", "pay-1", `{}`))
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), post("/api/v1/orders/HO-1/payment", "pay-1", `{}`))

	if inner == nil || inner.Code != http.StatusConflict {
		t.Fatalf("expected nested duplicate to get 409, got %+v", inner)
	}
	if got := errorCode(t, inner); got != string(pkgerrors.CodeConflict) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeConflict, got)
	}
}

func TestIdempotentReleasesKeyAfterServerError(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotent(store, nil, PaymentIdempotency)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), post("/api/v1/orders/HO-1/payment", "retry-me", `{}`))
	if len(store.data) != 0 {
		t.Fatalf("expected failed attempt to stay retryable, stored %d records", len(store.data))
	}
	handler.ServeHTTP(httptest.NewRecorder(), post("/api/v1/orders/HO-1/payment", "retry-me", `{}`))
	if calls != 2 {
		t.Fatalf("expected retry to reach the handler, calls=%d", calls)
	}
}

func TestIdempotentDetectsBodyChange(t *testing.T) {
	handler := Idempotent(newFakeStore(), nil, CheckoutIdempotency)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), post("/api/v1/checkout", "xyz", `{"liters":1500}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, post("/api/v1/checkout", "xyz", `{"liters":3000}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if got := errorCode(t, rec); got != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, got)
	}
}

func TestIdempotencyScopeSeparatesShops(t *testing.T) {
	a := post("/api/v1/checkout", "k", "")
	a.Header.Set(ForwardedHostHeader, "Heizoel-Schnell.de")
	b := post("/api/v1/checkout", "k", "")
	b.Header.Set(ForwardedHostHeader, "mazoutvandaag.be")

	if idempotencyScope(a) == idempotencyScope(b) {
		t.Fatalf("expected distinct scopes per storefront")
	}
	if !strings.Contains(idempotencyScope(a), "heizoel-schnell.de") {
		t.Fatalf("expected lowercased host in scope %q", idempotencyScope(a))
	}
}
