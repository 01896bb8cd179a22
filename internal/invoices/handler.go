package invoices

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quickbill/quickbill/internal/platform/httpx"
	"github.com/quickbill/quickbill/internal/shared"
)

// Handler exposes the invoice and return endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.handleList)
	r.Post("/invoices", h.handleCreate)
	r.Get("/invoices/{id}", h.handleGet)
	r.Put("/invoices/{id}", h.handleUpdate)
	r.Delete("/invoices/{id}", h.handleDelete)
}

// MountReturnRoutes registers the reconciliation endpoints.
func (h *Handler) MountReturnRoutes(r chi.Router) {
	r.Post("/sales/{id}/return", h.handleSaleReturn)
	r.Post("/purchases/{id}/return", h.handlePurchaseReturn)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrTypeImmutable), errors.Is(err, ErrTotalsMismatch):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotReturnable), errors.Is(err, ErrInvoiceClosed), errors.Is(err, ErrNoLines),
		errors.Is(err, ErrItemNotOnInvoice), errors.Is(err, ErrOverReturn), errors.Is(err, ErrFullyReturned):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Return Rejected", err.Error())
	case errors.Is(err, ErrHasReturns):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, ErrSchemaUnsupported):
		h.logger.Error("schema guard tripped", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Schema Misconfigured", err.Error())
	default:
		h.logger.Error("invoice request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	inv, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"message": "invoice created",
		"data":    inv,
		// Stringified id kept for UI consumers that treat ids as opaque.
		"id": strconv.FormatInt(inv.ID, 10),
	})
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req CreateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	inv, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "invoice updated", "data": inv})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": inv})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	partyID, _ := strconv.ParseInt(r.URL.Query().Get("party_id"), 10, 64)
	filters := ListFilters{
		Type:    InvoiceType(r.URL.Query().Get("type")),
		PartyID: partyID,
		Search:  r.URL.Query().Get("search"),
		SortBy:  r.URL.Query().Get("sort"),
		SortDir: r.URL.Query().Get("dir"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			filters.From = t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			filters.To = t
		}
	}
	items, total, err := h.service.List(r.Context(), limit, offset, filters)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": items, "total": total})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"message": "invoice deleted"})
}

func (h *Handler) handleSaleReturn(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, h.service.ReturnSale)
}

func (h *Handler) handlePurchaseReturn(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, h.service.ReturnPurchase)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request, process func(ctx context.Context, id int64, req ReturnRequest, idemKey string) (ReturnResult, error)) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var req ReturnRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	result, err := process(r.Context(), id, req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message":         result.Message,
		"returnInvoiceId": result.ReturnInvoiceID,
	})
}
