package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/quickbill/quickbill/internal/expenses"
	"github.com/quickbill/quickbill/internal/invoices"
	"github.com/quickbill/quickbill/internal/items"
	"github.com/quickbill/quickbill/internal/parties"
	"github.com/quickbill/quickbill/internal/payments"
	"github.com/quickbill/quickbill/internal/reports"
	"github.com/quickbill/quickbill/internal/stock"
	"github.com/quickbill/quickbill/internal/suppliers"
	"github.com/quickbill/quickbill/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	InvoiceHandler  *invoices.Handler
	ItemHandler     *items.Handler
	PartyHandler    *parties.Handler
	SupplierHandler *suppliers.Handler
	PaymentHandler  *payments.Handler
	ExpenseHandler  *expenses.Handler
	StockHandler    *stock.Handler
	UserHandler     *users.Handler
	ReportHandler   *reports.Handler
}

// NewRouter constructs the chi.Router with QuickBill defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	params.InvoiceHandler.MountRoutes(r)
	params.InvoiceHandler.MountReturnRoutes(r)
	r.Route("/items", params.ItemHandler.MountRoutes)
	r.Route("/parties", params.PartyHandler.MountRoutes)
	r.Route("/suppliers", params.SupplierHandler.MountRoutes)
	r.Route("/payments", params.PaymentHandler.MountRoutes)
	r.Route("/expenses", params.ExpenseHandler.MountRoutes)
	r.Route("/stock", params.StockHandler.MountRoutes)
	r.Route("/users", params.UserHandler.MountRoutes)
	r.Route("/reports", params.ReportHandler.MountRoutes)

	return r
}
