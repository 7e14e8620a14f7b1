package payments

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox/payloads"
)

// StartResult is returned to the storefront after a successful initiation.
type StartResult struct {
	Session     *PaymentSession `json:"session"`
	RedirectURL string          `json:"redirectUrl"`
}

// Service runs the payment flow for stored orders.
type Service interface {
	StartForOrder(ctx context.Context, orderNumber string) (*StartResult, error)
	ConsumeHandoff(ctx context.Context, orderNumber string) (*Handoff, error)
	StatusForOrder(ctx context.Context, orderNumber string) (*StatusResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type handoffStore interface {
	Save(ctx context.Context, handoff Handoff) error
	Consume(ctx context.Context, orderNumber string) (*Handoff, error)
	Discard(ctx context.Context, orderNumber string) error
}

// ServiceParams wires the payment service.
type ServiceParams struct {
	Adapter   *Adapter
	Handoffs  handoffStore
	Orders    orders.Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	PublicURL string
	Logger    *logger.Logger
}

type service struct {
	adapter   *Adapter
	handoffs  handoffStore
	orders    orders.Repository
	tx        txRunner
	outbox    outbox.Emitter
	publicURL string
	logg      *logger.Logger
}

// NewService constructs the payment service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Adapter == nil:
		return nil, fmt.Errorf("payment adapter required")
	case params.Handoffs == nil:
		return nil, fmt.Errorf("handoff store required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	publicURL := strings.TrimRight(strings.TrimSpace(params.PublicURL), "/")
	if publicURL == "" {
		return nil, fmt.Errorf("public url required")
	}
	return &service{
		adapter:   params.Adapter,
		handoffs:  params.Handoffs,
		orders:    params.Orders,
		tx:        params.Tx,
		outbox:    params.Outbox,
		publicURL: publicURL,
		logg:      params.Logger,
	}, nil
}

// StartForOrder initiates the hosted payment page for a card order. The
// payment id, the outbox event and the handoff are written together: the
// handoff is stored last inside the transaction and discarded if it rolls back.
func (s *service) StartForOrder(ctx context.Context, orderNumber string) (*StartResult, error) {
	order, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	if !order.PaymentMethod.UsesHostedPaymentPage() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not paid by card")
	}
	if order.Status != enums.OrderStatusNew {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer awaiting payment").
			WithDetails(map[string]any{"status": order.Status})
	}

	escaped := url.QueryEscape(order.OrderNumber)
	session, err := s.adapter.Initiate(ctx, InitiateRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Description:   fmt.Sprintf("%s %s l", order.Product, order.Liters.String()),
		CustomerEmail: order.CustomerEmail,
		ReturnURL:     s.publicURL + "/checkout/success?order=" + escaped,
		CancelURL:     s.publicURL + "/payment/cancel?order=" + escaped,
		Language:      order.CustomerLanguage,
	})
	if err != nil {
		return nil, err
	}

	var handoffErr error
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).SetPaymentID(ctx, order.ID, session.PaymentID); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentInitiatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				PaymentID:   session.PaymentID,
				Environment: session.Environment,
			},
		}); err != nil {
			return err
		}
		handoffErr = s.handoffs.Save(ctx, Handoff{
			OrderNumber: order.OrderNumber,
			FormHTML:    session.FormHTML,
			Environment: session.Environment,
		})
		return handoffErr
	})
	if err != nil {
		// the form must not outlive a rolled back payment id
		if discardErr := s.handoffs.Discard(ctx, order.OrderNumber); discardErr != nil {
			s.logg.Error(ctx, "discard payment handoff", discardErr)
		}
		if handoffErr != nil {
			s.logg.Error(ctx, "store payment handoff", handoffErr)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, handoffErr, "store payment handoff")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment session")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id":  session.PaymentID,
		"environment": session.Environment,
	}), "payment session initiated")
	return &StartResult{
		Session:     session,
		RedirectURL: "/payment/" + url.PathEscape(order.OrderNumber),
	}, nil
}

// ConsumeHandoff returns the redirect payload once; later calls return nil.
func (s *service) ConsumeHandoff(ctx context.Context, orderNumber string) (*Handoff, error) {
	handoff, err := s.handoffs.Consume(ctx, orderNumber)
	if err != nil {
		s.logg.Error(s.logg.WithOrderNumber(ctx, orderNumber), "read payment handoff", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read payment handoff")
	}
	return handoff, nil
}

// StatusForOrder polls the gateway for the order's last payment id. A nil
// result means the status is unknown.
func (s *service) StatusForOrder(ctx context.Context, orderNumber string) (*StatusResult, error) {
	order, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.PaymentID == nil {
		return nil, nil
	}
	return s.adapter.CheckStatus(s.logg.WithOrderNumber(ctx, order.OrderNumber), *order.PaymentID), nil
}

func (s *service) loadOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.orders.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
