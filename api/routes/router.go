package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stanton-energie/heizoel-backend/api/controllers"
	ordercontrollers "github.com/stanton-energie/heizoel-backend/api/controllers/orders"
	"github.com/stanton-energie/heizoel-backend/api/middleware"
	"github.com/stanton-energie/heizoel-backend/internal/audit"
	"github.com/stanton-energie/heizoel-backend/internal/bankaccounts"
	checkoutsvc "github.com/stanton-energie/heizoel-backend/internal/checkout"
	"github.com/stanton-energie/heizoel-backend/internal/invoices"
	"github.com/stanton-energie/heizoel-backend/internal/orders"
	"github.com/stanton-energie/heizoel-backend/internal/payments"
	"github.com/stanton-energie/heizoel-backend/internal/shops"
	"github.com/stanton-energie/heizoel-backend/internal/suppliers"
	"github.com/stanton-energie/heizoel-backend/pkg/config"
	"github.com/stanton-energie/heizoel-backend/pkg/db"
	"github.com/stanton-energie/heizoel-backend/pkg/logger"
	"github.com/stanton-energie/heizoel-backend/pkg/redis"
)

type idempotencyStore interface {
	redis.IdempotencyStore
	redis.Pinger
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient idempotencyStore,
	registry *shops.Registry,
	supplierResolver suppliers.Resolver,
	supplierService suppliers.Service,
	bankAccountService bankaccounts.Service,
	checkoutService checkoutsvc.Service,
	paymentService payments.Service,
	ordersService orders.Service,
	auditService audit.Service,
	invoiceService invoices.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.AccessLog(logg),
		middleware.CORS(registry, cfg.App.CORSOrigins),
	)

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	adminIdempotent := middleware.Idempotent(redisClient, logg, middleware.AdminIdempotency)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CheckoutSession(registry, cfg.Shops.CookieName, logg))

		r.Get("/shop", controllers.CurrentShop(logg))
		r.Post("/session/referrer", controllers.SetReferrer(registry, cfg.Shops.CookieName, logg))
		r.Get("/suppliers/lookup", controllers.SupplierLookup(supplierResolver, logg))
		r.With(middleware.RateLimit(limiter, logg), middleware.Idempotent(redisClient, logg, middleware.CheckoutIdempotency)).Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.With(middleware.RateLimit(limiter, logg), middleware.Idempotent(redisClient, logg, middleware.PaymentIdempotency)).Post("/orders/{orderNumber}/payment", controllers.PaymentStart(paymentService, logg))
	})

	// cancel must be registered before the order-number landing route
	r.Get("/payment/cancel", controllers.PaymentCancel(logg))
	r.Get("/payment/{orderNumber}", controllers.PaymentLanding(paymentService, logg))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		write := middleware.RequireWrite(logg)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Route("/{orderNumber}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersService, logg))
				r.Get("/history", ordercontrollers.History(ordersService, auditService, logg))
				r.Get("/notes", ordercontrollers.Notes(ordersService, auditService, logg))
				r.Get("/stream", ordercontrollers.Stream(ordersService, auditService, logg))
				r.Get("/payment-status", ordercontrollers.PaymentStatus(paymentService, logg))
				r.With(write, adminIdempotent).Post("/status", ordercontrollers.ChangeStatus(ordersService, auditService, logg))
				r.With(write, adminIdempotent).Post("/notes", ordercontrollers.AddNote(ordersService, auditService, logg))
				r.With(write, adminIdempotent).Post("/invoice", ordercontrollers.PrintInvoice(invoiceService, cfg.Invoice.PrintDelay, logg))
			})
		})

		r.Get("/suppliers", controllers.AdminSupplierList(supplierService, logg))
		r.With(write, adminIdempotent).Post("/suppliers", controllers.AdminSupplierCreate(supplierService, logg))
		r.Get("/suppliers/{supplierId}", controllers.AdminSupplierDetail(supplierService, logg))
		r.With(write).Put("/suppliers/{supplierId}", controllers.AdminSupplierUpdate(supplierService, logg))
		r.With(write).Post("/suppliers/{supplierId}/postcodes", controllers.AdminSupplierAddPostcodes(supplierService, logg))

		r.Get("/bank-accounts", controllers.AdminBankAccountList(bankAccountService, logg))
		r.With(write, adminIdempotent).Post("/bank-accounts", controllers.AdminBankAccountCreate(bankAccountService, logg))
		r.With(write).Put("/bank-accounts/{accountId}/active", controllers.AdminBankAccountSetActive(bankAccountService, logg))
	})

	return r
}
