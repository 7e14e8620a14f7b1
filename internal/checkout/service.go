package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stanton-energie/heizoel-backend/internal/audit"
	"github.com/stanton-energie/heizoel-backend/internal/bankaccounts"
	"github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/shops"
	"github.com/stanton-energie/heizoel-backend/internal/suppliers"
	"github.com/stanton-energie/heizoel-backend/pkg/db/models"
	"github.com/stanton-energie/heizoel-backend/pkg/enums"
	pkgerrors "github.com/stanton-energie/heizoel-backend/pkg/errors"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox/payloads"
)

const (
	NoticeSupplierUnavailable = "Lieferant konnte nicht ermittelt werden. Bitte prüfen Sie die Postleitzahl."
	NoticeBankUnavailable     = "Bankverbindung wird mit der Rechnung übermittelt."
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type historyRecorder interface {
	RecordCreated(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.OrderStatusHistory, error)
}

// Service turns a checkout form into an order.
type Service interface {
	Submit(ctx context.Context, session shops.CheckoutSession, input SubmitInput) (*Result, error)
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	Tx        txRunner
	Orders    orders.Repository
	Suppliers suppliers.Resolver
	Banks     bankaccounts.Selector
	Audit     historyRecorder
	Outbox    outbox.Emitter
	Logger    *logger.Logger
	Metrics   *metrics.OrderMetrics
	Clock     func() time.Time
}

type service struct {
	tx        txRunner
	orders    orders.Repository
	suppliers suppliers.Resolver
	banks     bankaccounts.Selector
	audit     historyRecorder
	outbox    outbox.Emitter
	logg      *logger.Logger
	metrics   *metrics.OrderMetrics
	now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case params.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.Suppliers == nil:
		return nil, fmt.Errorf("supplier resolver required")
	case params.Banks == nil:
		return nil, fmt.Errorf("bank account selector required")
	case params.Audit == nil:
		return nil, fmt.Errorf("audit recorder required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:        params.Tx,
		orders:    params.Orders,
		suppliers: params.Suppliers,
		banks:     params.Banks,
		audit:     params.Audit,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

var _ historyRecorder = (audit.Service)(nil)

// Submit resolves the supplier and settlement account, then records the order
// with its first history entry and an order_created event in one transaction.
// Supplier failures degrade to a notice; a missing account only blocks bank transfers.
func (s *service) Submit(ctx context.Context, session shops.CheckoutSession, input SubmitInput) (*Result, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	shopType := session.Shop.ShopType
	if !shopType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shop")
	}
	ctx = s.logg.WithShop(ctx, string(shopType), session.Belgian)

	var (
		assignment *suppliers.Assignment
		account    *models.BankAccount
		notices    []string
	)
	// the lookups degrade independently
	var (
		wg                   sync.WaitGroup
		supplierErr, bankErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		assignment, supplierErr = s.suppliers.Resolve(ctx, input.DeliveryPostcode)
	}()
	go func() {
		defer wg.Done()
		account, bankErr = s.banks.ForSystem(ctx, session.SettlementSystem())
	}()
	wg.Wait()
	if supplierErr != nil {
		assignment = nil
		s.logg.Warn(s.logg.WithField(ctx, "error", supplierErr.Error()), "supplier lookup degraded")
	}
	if bankErr != nil {
		account = nil
		s.logg.Warn(s.logg.WithField(ctx, "error", bankErr.Error()), "bank account selection degraded")
	}

	if assignment == nil {
		notices = append(notices, NoticeSupplierUnavailable)
	}
	if account == nil {
		if input.PaymentMethod.RequiresBankAccount() {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "no settlement account available for bank transfer").
				WithDetails(map[string]string{"system_name": session.SettlementSystem()})
		}
		if input.PaymentMethod != enums.PaymentMethodCard {
			notices = append(notices, NoticeBankUnavailable)
		}
	}

	number, err := orders.NewOrderNumber(s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order number")
	}
	variant := session.Variant()
	order := &models.Order{
		ID:                          uuid.New(),
		OrderNumber:                 number,
		ShopType:                    shopType,
		Amount:                      input.Amount(),
		Currency:                    session.Shop.Currency,
		CustomerName:                strings.TrimSpace(input.CustomerName),
		CustomerEmail:               strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:               trimmed(input.CustomerPhone),
		DeliveryStreet:              strings.TrimSpace(input.DeliveryStreet),
		DeliveryPostcode:            strings.TrimSpace(input.DeliveryPostcode),
		DeliveryCity:                strings.TrimSpace(input.DeliveryCity),
		Product:                     strings.TrimSpace(input.Product),
		Liters:                      input.Liters,
		PricePerLiter:               input.PricePerLiter,
		PaymentMethod:               input.PaymentMethod,
		Status:                      enums.OrderStatusNew,
		CustomerLanguage:            variant.CustomerLanguage,
		ShouldSendOrderConfirmation: variant.ShouldSendOrderConfirmation,
		ShouldSendInvoice:           variant.ShouldSendInvoice,
		Referrer:                    trimmed(&session.Referrer),
	}
	if order.Currency == "" {
		order.Currency = enums.CurrencyEUR
	}
	if assignment != nil {
		supplierID := assignment.SupplierID
		order.SupplierID = &supplierID
	}
	if account != nil {
		order.BankAccountID = &account.ID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}
		if _, err := s.audit.RecordCreated(ctx, tx, order); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:                     order.ID,
				OrderNumber:                 order.OrderNumber,
				ShopType:                    order.ShopType,
				Amount:                      order.Amount.StringFixed(2),
				Currency:                    order.Currency,
				PaymentMethod:               order.PaymentMethod,
				SupplierID:                  order.SupplierID,
				BankAccountID:               order.BankAccountID,
				CustomerLanguage:            order.CustomerLanguage,
				ShouldSendOrderConfirmation: order.ShouldSendOrderConfirmation,
				ShouldSendInvoice:           order.ShouldSendInvoice,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	s.metrics.IncCheckout(string(shopType), session.Belgian)
	s.logg.Info(s.logg.WithOrderNumber(ctx, order.OrderNumber), "order submitted")

	result := &Result{
		OrderID:                     order.ID,
		OrderNumber:                 order.OrderNumber,
		Status:                      order.Status,
		ShopType:                    order.ShopType,
		Amount:                      order.Amount,
		Currency:                    order.Currency,
		PaymentMethod:               order.PaymentMethod,
		Supplier:                    assignment,
		CustomerLanguage:            order.CustomerLanguage,
		ShouldSendOrderConfirmation: order.ShouldSendOrderConfirmation,
		ShouldSendInvoice:           order.ShouldSendInvoice,
		Notices:                     notices,
	}
	if account != nil {
		result.BankAccount = &BankDetails{
			ID:            account.ID,
			BankName:      account.BankName,
			IBAN:          account.IBAN,
			BIC:           account.BIC,
			AccountHolder: account.AccountHolder,
		}
	}
	if order.PaymentMethod.UsesHostedPaymentPage() {
		result.PaymentURL = "/api/v1/orders/" + order.OrderNumber + "/payment"
	}
	return result, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
