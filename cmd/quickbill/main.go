package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quickbill/quickbill/internal/app"
	"github.com/quickbill/quickbill/internal/expenses"
	"github.com/quickbill/quickbill/internal/invoices"
	"github.com/quickbill/quickbill/internal/items"
	"github.com/quickbill/quickbill/internal/parties"
	"github.com/quickbill/quickbill/internal/payments"
	"github.com/quickbill/quickbill/internal/platform/cache"
	"github.com/quickbill/quickbill/internal/platform/db"
	"github.com/quickbill/quickbill/internal/reports"
	"github.com/quickbill/quickbill/internal/shared"
	"github.com/quickbill/quickbill/internal/stock"
	"github.com/quickbill/quickbill/internal/suppliers"
	"github.com/quickbill/quickbill/internal/users"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{
		MaxConns:        cfg.PGMaxConns,
		MinConns:        cfg.PGMinConns,
		MaxConnLifetime: cfg.PGConnLifetime,
	})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, idempotent replay disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	resultCache := shared.NewResultCache(redisClient, cfg.IdempotencyTTL)

	invoiceRepo := invoices.NewRepository(pool)
	invoiceService := invoices.NewService(invoiceRepo, auditLogger, idempotencyStore, resultCache, logger)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	itemRepo := items.NewRepository(pool)
	itemService := items.NewService(itemRepo, auditLogger)
	itemHandler := items.NewHandler(logger, itemService)

	partyRepo := parties.NewRepository(pool)
	partyService := parties.NewService(partyRepo, auditLogger)
	partyHandler := parties.NewHandler(logger, partyService)

	supplierRepo := suppliers.NewRepository(pool)
	supplierService := suppliers.NewService(supplierRepo, auditLogger)
	supplierHandler := suppliers.NewHandler(logger, supplierService)

	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, auditLogger)
	paymentHandler := payments.NewHandler(logger, paymentService)

	expenseRepo := expenses.NewRepository(pool)
	expenseService := expenses.NewService(expenseRepo, auditLogger)
	expenseHandler := expenses.NewHandler(logger, expenseService)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger)
	stockHandler := stock.NewHandler(logger, stockService)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, auditLogger)
	userHandler := users.NewHandler(logger, userService)

	reportRepo := reports.NewRepository(pool)
	reportService := reports.NewService(reportRepo)
	reportHandler := reports.NewHandler(logger, reportService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		InvoiceHandler:  invoiceHandler,
		ItemHandler:     itemHandler,
		PartyHandler:    partyHandler,
		SupplierHandler: supplierHandler,
		PaymentHandler:  paymentHandler,
		ExpenseHandler:  expenseHandler,
		StockHandler:    stockHandler,
		UserHandler:     userHandler,
		ReportHandler:   reportHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
