package orders

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/internal/audit"
	"github.com/stanton-energie/heizoel-backend/internal/invoices"
	internalorders "github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/orderstream"
	"github.com/stanton-energie/heizoel-backend/internal/payments"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/db/dbtest"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
)

type fixture struct {
	conn   *gorm.DB
	orders internalorders.Service
	audit  audit.Service
	order  models.Order
	router chi.Router
}

type stubPayments struct {
	status *payments.StatusResult
	err    error
}

func (s stubPayments) StartForOrder(context.Context, string) (*payments.StartResult, error) {
	return nil, errors.New("not implemented")
}

func (s stubPayments) ConsumeHandoff(context.Context, string) (*payments.Handoff, error) {
	return nil, errors.New("not implemented")
}

func (s stubPayments) StatusForOrder(context.Context, string) (*payments.StatusResult, error) {
	return s.status, s.err
}

type stubInvoices struct {
	called bool
}

func (s *stubInvoices) Generate(context.Context, invoices.GenerateInput) (*invoices.Result, error) {
	s.called = true
	return &invoices.Result{InvoiceNumber: "RE-2026-0042", HTMLContent: "<html><body>Rechnung</body></html>"}, nil
}

func newFixture(t *testing.T, pay payments.Service, inv invoices.Service) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "orders-controller-test", Output: io.Discard})
	broker := orderstream.NewLocalBroker()
	t.Cleanup(func() { _ = broker.Close() })

	ordersRepo := internalorders.NewRepository(conn)
	ordersSvc, err := internalorders.NewService(ordersRepo)
	require.NoError(t, err)
	auditSvc, err := audit.NewService(audit.ServiceParams{
		Repo:   audit.NewRepository(conn),
		Orders: ordersRepo,
		Tx:     db.Wrap(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), logg),
		Broker: broker,
		Config: config.AuditConfig{},
		Logger: logg,
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/orders", List(ordersSvc, logg))
	r.Route("/orders/{orderNumber}", func(r chi.Router) {
		r.Get("/", Detail(ordersSvc, logg))
		r.Get("/history", History(ordersSvc, auditSvc, logg))
		r.Post("/status", ChangeStatus(ordersSvc, auditSvc, logg))
		r.Get("/notes", Notes(ordersSvc, auditSvc, logg))
		r.Post("/notes", AddNote(ordersSvc, auditSvc, logg))
		r.Get("/stream", Stream(ordersSvc, auditSvc, logg))
		r.Get("/payment-status", PaymentStatus(pay, logg))
		r.Post("/invoice", PrintInvoice(inv, 10*time.Millisecond, logg))
	})

	return &fixture{
		conn:   conn,
		orders: ordersSvc,
		audit:  auditSvc,
		order:  dbtest.SeedOrder(t, conn),
		router: r,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestListAndDetail(t *testing.T) {
	f := newFixture(t, stubPayments{}, &stubInvoices{})

	rec := f.do(t, http.MethodGet, "/orders?status=Neu&limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list internalorders.ListResult
	decodeData(t, rec, &list)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, f.order.OrderNumber, list.Orders[0].OrderNumber)

	rec = f.do(t, http.MethodGet, "/orders?status=storniert", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/orders/"+f.order.OrderNumber+"/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail internalorders.OrderDetail
	decodeData(t, rec, &detail)
	assert.Equal(t, f.order.ID, detail.ID)

	rec = f.do(t, http.MethodGet, "/orders/HO-000000-000000/", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeStatusAppendsHistory(t *testing.T) {
	f := newFixture(t, stubPayments{}, &stubInvoices{})
	path := "/orders/" + f.order.OrderNumber

	rec := f.do(t, http.MethodPost, path+"/status", `{"old_status":"Neu","new_status":"Bezahlt","notes":"Zahlung eingegangen"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, path+"/status", `{"old_status":"Neu","new_status":"Versandt"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, path+"/status", `{"old_status":"Neu","new_status":"Unterwegs"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, path+"/history", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []models.OrderStatusHistory
	decodeData(t, rec, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "Bezahlt", string(history[0].NewStatus))
	require.NotNil(t, history[0].Notes)
	assert.Equal(t, "Zahlung eingegangen", *history[0].Notes)
}

func TestNotesRoundTrip(t *testing.T) {
	f := newFixture(t, stubPayments{}, &stubInvoices{})
	path := "/orders/" + f.order.OrderNumber + "/notes"

	rec := f.do(t, http.MethodPost, path, `{"message":"Kunde ruft zurück"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, path, `{"message":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notes []models.OrderNote
	decodeData(t, rec, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, "Kunde ruft zurück", notes[0].Message)
}

func TestPaymentStatusDegradesToNotice(t *testing.T) {
	f := newFixture(t, stubPayments{}, &stubInvoices{})
	rec := f.do(t, http.MethodGet, "/orders/"+f.order.OrderNumber+"/payment-status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"payment_status":null`)
	assert.Contains(t, rec.Body.String(), NoticePaymentStatusUnavailable)

	f = newFixture(t, stubPayments{status: &payments.StatusResult{PaymentID: "HO261017123456", Outcome: "OK", Status: "Autorizzato"}}, &stubInvoices{})
	rec = f.do(t, http.MethodGet, "/orders/"+f.order.OrderNumber+"/payment-status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Autorizzato")
	assert.NotContains(t, rec.Body.String(), "notices")
}

func TestPrintInvoice(t *testing.T) {
	inv := &stubInvoices{}
	f := newFixture(t, stubPayments{}, inv)
	path := "/orders/" + f.order.OrderNumber + "/invoice"

	rec := f.do(t, http.MethodPost, path, `{"bank_account_id":"not-a-uuid"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, inv.called)

	rec = f.do(t, http.MethodPost, path, `{"shop_type":"belgium"}`, map[string]string{"Sec-Fetch-Dest": "document"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, inv.called)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "window.print")

	rec = f.do(t, http.MethodPost, path, `{}`, map[string]string{"Sec-Fetch-Dest": "empty"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "pop-ups")

	rec = f.do(t, http.MethodPost, path, `{}`, map[string]string{"Accept": "application/json"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "RE-2026-0042")
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, reader *bufio.Reader) sseEvent {
	t.Helper()
	var event sseEvent
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event.name != "":
			return event
		case strings.HasPrefix(line, "event: "):
			event.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			event.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamSendsSnapshotThenLiveEntries(t *testing.T) {
	f := newFixture(t, stubPayments{}, &stubInvoices{})
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	_, err := f.audit.AddNote(context.Background(), audit.NoteInput{OrderID: f.order.ID, Message: "vorher"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/orders/"+f.order.OrderNumber+"/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	require.Equal(t, "snapshot", first.name)
	var snapshot snapshotEvent
	require.NoError(t, json.Unmarshal([]byte(first.data), &snapshot))
	assert.NotEmpty(t, snapshot.ViewerID)
	require.Len(t, snapshot.Notes, 1)
	assert.Empty(t, snapshot.Notice)

	_, err = f.audit.AddStatusChange(context.Background(), audit.StatusChange{
		OrderID:   f.order.ID,
		OldStatus: "Neu",
		NewStatus: "Bezahlt",
		Origin:    "another-viewer",
	})
	require.NoError(t, err)

	next := readEvent(t, reader)
	assert.Equal(t, "history", next.name)
	assert.Contains(t, next.data, `"new_status":"Bezahlt"`)
}
