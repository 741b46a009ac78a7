package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/consignedbydesign/delivery-platform/internal/catalog"
	"github.com/consignedbydesign/delivery-platform/pkg/logging"
)

// ProductLookup resolves SKUs and item numbers against the catalog.
type ProductLookup interface {
	LookupProduct(ctx context.Context, sku string) (*catalog.Product, error)
}

// ItemsHandler exposes catalog item lookup for scheduler staff.
type ItemsHandler struct {
	catalog ProductLookup
	logger  *logging.Logger
}

func NewItemsHandler(lookup ProductLookup, logger *logging.Logger) *ItemsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ItemsHandler{catalog: lookup, logger: logger}
}

// Routes mounts the item lookup endpoint.
func (h *ItemsHandler) Routes(r chi.Router) {
	r.Get("/items/{sku}", h.Lookup)
}

// Lookup resolves one SKU or item number. Route: GET /admin/items/{sku}
func (h *ItemsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimSpace(chi.URLParam(r, "sku"))
	if sku == "" {
		http.Error(w, "sku is required", http.StatusBadRequest)
		return
	}
	if h.catalog == nil {
		http.Error(w, "catalog lookup is not configured", http.StatusServiceUnavailable)
		return
	}

	product, err := h.catalog.LookupProduct(r.Context(), sku)
	if err != nil {
		h.logger.Error("catalog lookup failed", "sku", sku, "error", err)
		http.Error(w, "catalog lookup failed", http.StatusBadGateway)
		return
	}
	if product == nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
