// Package orders serves the back-office order views: list, detail, status
// transitions, notes, the live trail stream, payment polling and invoice printing.
package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stanton-energie/heizoel-backend/api/responses"
	"github.com/stanton-energie/heizoel-backend/api/validators"
	"github.com/stanton-energie/heizoel-backend/internal/audit"
	internalorders "github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/payments"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/pagination"
)

// ViewerHeader lets a stream viewer tag its own writes so the stream skips their echo.
const ViewerHeader = "X-Viewer-Id"

// NoticePaymentStatusUnavailable is returned when the gateway could not be polled.
const NoticePaymentStatusUnavailable = "Zahlungsstatus derzeit nicht verfügbar."

// List returns a page of orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), internalorders.ListParams{
			Status:   validators.QueryString(r, "status", 32),
			ShopType: validators.QueryString(r, "shop", 32),
			Limit:    limit,
			Cursor:   validators.QueryString(r, "cursor", 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Detail returns the order with its status label, next status and invoices.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		detail, err := svc.Detail(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type statusChangeRequest struct {
	OldStatus enums.OrderStatus `json:"old_status" validate:"required,enum"`
	NewStatus enums.OrderStatus `json:"new_status" validate:"required,enum"`
	Notes     *string           `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// ChangeStatus appends one history entry and moves the order to the new status.
func ChangeStatus(ordersSvc internalorders.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusChangeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := ordersSvc.Get(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entry, err := auditSvc.AddStatusChange(r.Context(), audit.StatusChange{
			OrderID:   order.ID,
			OldStatus: req.OldStatus,
			NewStatus: req.NewStatus,
			Notes:     req.Notes,
			Origin:    viewerID(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// History lists the status ledger, newest first.
func History(ordersSvc internalorders.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := ordersSvc.Get(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := auditSvc.History(r.Context(), order.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

// Notes lists operator notes, oldest first.
func Notes(ordersSvc internalorders.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := ordersSvc.Get(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notes, err := auditSvc.Notes(r.Context(), order.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, notes)
	}
}

type noteRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

// AddNote appends an operator note.
func AddNote(ordersSvc internalorders.Service, auditSvc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req noteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := ordersSvc.Get(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		note, err := auditSvc.AddNote(r.Context(), audit.NoteInput{
			OrderID: order.ID,
			Message: req.Message,
			Origin:  viewerID(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, note)
	}
}

type paymentStatusResponse struct {
	PaymentStatus *payments.StatusResult `json:"payment_status"`
}

// PaymentStatus polls the gateway. Failures degrade to a null status with a notice.
func PaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.StatusForOrder(r.Context(), orderNumberParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if status == nil {
			responses.WriteSuccessWithNotices(w, paymentStatusResponse{}, []string{NoticePaymentStatusUnavailable})
			return
		}
		responses.WriteSuccess(w, paymentStatusResponse{PaymentStatus: status})
	}
}

func orderNumberParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "orderNumber"))
}

func viewerID(r *http.Request) string {
	return validators.SanitizeString(r.Header.Get(ViewerHeader), 64)
}
