package invoices

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/invoicefn"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox/payloads"
)

// DocumentService numbers and renders invoices.
type DocumentService interface {
	Generate(ctx context.Context, req invoicefn.Request) (*invoicefn.Document, error)
}

// GenerateInput selects the order plus optional shop and bank account
// overrides; unset values come from the order.
type GenerateInput struct {
	OrderNumber   string
	ShopType      *enums.ShopType
	BankAccountID *uuid.UUID
}

// Result is a generated invoice ready for delivery.
type Result struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	HTMLContent   string    `json:"html_content"`
}

// Service orchestrates invoice generation.
type Service interface {
	Generate(ctx context.Context, input GenerateInput) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the invoice service.
type ServiceParams struct {
	Documents DocumentService
	Repo      Repository
	Orders    orders.Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Metrics   *metrics.OrderMetrics
}

type service struct {
	documents DocumentService
	repo      Repository
	orders    orders.Repository
	tx        txRunner
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics
}

// NewService constructs the invoice service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Documents == nil:
		return nil, fmt.Errorf("invoice document service required")
	case params.Repo == nil:
		return nil, fmt.Errorf("invoice repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		documents: params.Documents,
		repo:      params.Repo,
		orders:    params.Orders,
		tx:        params.Tx,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Generate asks the document service for an invoice and records its number.
// A failed call leaves every local row untouched. Numbers are not deduplicated.
func (s *service) Generate(ctx context.Context, input GenerateInput) (*Result, error) {
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)

	shopType := order.ShopType
	if input.ShopType != nil {
		if !input.ShopType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shop")
		}
		shopType = *input.ShopType
	}
	bankAccountID := order.BankAccountID
	if input.BankAccountID != nil {
		bankAccountID = input.BankAccountID
	}

	req := invoicefn.Request{OrderID: order.ID.String()}
	shopID := string(shopType)
	req.ShopID = &shopID
	if bankAccountID != nil {
		id := bankAccountID.String()
		req.BankAccountID = &id
	}

	doc, err := s.documents.Generate(ctx, req)
	if err != nil {
		s.metrics.IncInvoice("failed")
		s.logg.Error(ctx, "invoice generation failed", err)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invoice generation failed")
	}

	invoice := &models.Invoice{
		ID:            uuid.New(),
		OrderID:       order.ID,
		InvoiceNumber: doc.InvoiceNumber,
		ShopType:      &shopType,
		BankAccountID: bankAccountID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Insert(ctx, invoice); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvoiceGenerated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.InvoiceGeneratedEvent{
				OrderID:       order.ID,
				InvoiceID:     invoice.ID,
				InvoiceNumber: invoice.InvoiceNumber,
				ShopType:      invoice.ShopType,
				BankAccountID: invoice.BankAccountID,
			},
		})
	})
	if err != nil {
		s.metrics.IncInvoice("failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record invoice")
	}

	s.metrics.IncInvoice("generated")
	s.logg.Info(s.logg.WithField(ctx, "invoice_number", invoice.InvoiceNumber), "invoice generated")
	return &Result{
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		HTMLContent:   doc.HTMLContent,
	}, nil
}
