package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/softguidetech/karage/internal/domain/catalog"
)

func listVariant(p catalog.ListParams) string {
	return fmt.Sprintf("%d:%d:%t", p.Limit, p.Offset, p.ActiveOnly)
}

// ListUoM serves GET /uom: units of measure with their category reference.
func (h *Handler) ListUoM(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.authenticate(w, r, q.Get("api_key")) {
		return
	}
	params := parseListParams(q)
	h.serveCachedList(w, r, "uom", listVariant(params), func(ctx context.Context) (any, error) {
		return h.uoms.List(ctx, params)
	})
}

// ListProducts serves GET /products: products with variants, suppliers, and
// customer tax references.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.authenticate(w, r, q.Get("api_key")) {
		return
	}
	params := parseListParams(q)
	h.serveCachedList(w, r, "products", listVariant(params), func(ctx context.Context) (any, error) {
		return h.products.List(ctx, params)
	})
}

// ListVendors serves GET /vendors: supplier partners with their supplied
// products and fiscal-position tax mappings.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.authenticate(w, r, q.Get("api_key")) {
		return
	}
	params := parseListParams(q)
	h.serveCachedList(w, r, "vendors", listVariant(params), func(ctx context.Context) (any, error) {
		return h.vendors.List(ctx, params)
	})
}
