package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stanton-energie/heizoel-backend/internal/audit"
	"github.com/stanton-energie/heizoel-backend/internal/bankaccounts"
	"github.com/stanton-energie/heizoel-backend/internal/checkout"
	"github.com/stanton-energie/heizoel-backend/internal/invoices"
	"github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/orderstream"
	"github.com/stanton-energie/heizoel-backend/internal/payments"
	"github.com/stanton-energie/heizoel-backend/internal/shops"
	"github.com/stanton-energie/heizoel-backend/internal/suppliers"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/invoicefn"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/metrics"
	"github.com/stanton-energie/heizoel-backend/pkg/nexi"
	"github.com/stanton-energie/heizoel-backend/pkg/outbox"
	"github.com/stanton-energie/heizoel-backend/pkg/redis"
)

type services struct {
	registry     *shops.Registry
	suppliers    suppliers.Service
	bankAccounts bankaccounts.Service
	checkout     checkout.Service
	payments     payments.Service
	orders       orders.Service
	audit        audit.Service
	invoices     invoices.Service
	broker       orderstream.Broker
	brokerKind   string
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*services, error) {
	conn := dbClient.DB()
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	ordersRepo := orders.NewRepository(conn)

	supplierService, err := suppliers.NewService(suppliers.ServiceParams{
		Repo:    suppliers.NewRepository(conn),
		Tx:      dbClient,
		Policy:  cfg.Checkout.SupplierPolicy,
		Logger:  logg,
		Metrics: orderMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("supplier service: %w", err)
	}

	bankService, err := bankaccounts.NewService(bankaccounts.NewRepository(conn), dbClient, cfg.Checkout.BankAccountPolicy, logg)
	if err != nil {
		return nil, fmt.Errorf("bank account service: %w", err)
	}

	var broker orderstream.Broker
	brokerKind := "local"
	if cfg.FeatureFlags.LiveRedis {
		redisBroker, err := orderstream.NewRedisBroker(redisClient, logg)
		if err != nil {
			return nil, fmt.Errorf("order stream broker: %w", err)
		}
		broker, brokerKind = redisBroker, "redis"
	} else {
		broker = orderstream.NewLocalBroker(orderstream.WithDropHook(func(event orderstream.Event) {
			orderMetrics.IncLiveDropped(string(event.Kind))
		}))
	}

	auditService, err := audit.NewService(audit.ServiceParams{
		Repo:    audit.NewRepository(conn),
		Orders:  ordersRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Broker:  broker,
		Config:  cfg.Audit,
		Logger:  logg,
		Metrics: orderMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:        dbClient,
		Orders:    ordersRepo,
		Suppliers: supplierService,
		Banks:     bankService,
		Audit:     auditService,
		Outbox:    emitter,
		Logger:    logg,
		Metrics:   orderMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout service: %w", err)
	}

	paymentService, err := buildPayments(cfg, logg, dbClient, redisClient, ordersRepo, emitter, orderMetrics)
	if err != nil {
		return nil, err
	}

	documents, err := invoicefn.NewClient(cfg.Invoice.FunctionURL,
		invoicefn.WithAPIKey(cfg.Invoice.APIKey),
		invoicefn.WithHTTPClient(&http.Client{Timeout: cfg.Invoice.RequestTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("invoice function client: %w", err)
	}
	invoiceService, err := invoices.NewService(invoices.ServiceParams{
		Documents: documents,
		Repo:      invoices.NewRepository(conn),
		Orders:    ordersRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		Logger:    logg,
		Metrics:   orderMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("invoice service: %w", err)
	}

	ordersService, err := orders.NewService(ordersRepo)
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	return &services{
		registry:     shops.NewRegistry(cfg.Shops),
		suppliers:    supplierService,
		bankAccounts: bankService,
		checkout:     checkoutService,
		payments:     paymentService,
		orders:       ordersService,
		audit:        auditService,
		invoices:     invoiceService,
		broker:       broker,
		brokerKind:   brokerKind,
	}, nil
}

func buildPayments(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, ordersRepo orders.Repository, emitter outbox.Emitter, m *metrics.OrderMetrics) (payments.Service, error) {
	gateway, err := nexi.NewClient(cfg.Nexi.Alias, cfg.Nexi.SecretKey,
		nexi.WithEnvironment(cfg.Nexi.Environment()),
		nexi.WithBaseURL(cfg.Nexi.BaseURL),
		nexi.WithHTTPClient(&http.Client{Timeout: cfg.Nexi.RequestTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("nexi client: %w", err)
	}
	adapter, err := payments.NewAdapter(gateway, logg, m)
	if err != nil {
		return nil, fmt.Errorf("payment adapter: %w", err)
	}
	handoffs, err := payments.NewHandoffStore(redisClient, cfg.Nexi.HandoffTTL)
	if err != nil {
		return nil, fmt.Errorf("payment handoff store: %w", err)
	}
	svc, err := payments.NewService(payments.ServiceParams{
		Adapter:   adapter,
		Handoffs:  handoffs,
		Orders:    ordersRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		PublicURL: cfg.App.PublicURL,
		Logger:    logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payment service: %w", err)
	}
	return svc, nil
}
