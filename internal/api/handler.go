// Package api exposes the HTTP surface: catalog reads, the POS order
// endpoint, and the health probe, all wrapped in the uniform response
// envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/softguidetech/karage/internal/cache"
	"github.com/softguidetech/karage/internal/domain/auth"
	"github.com/softguidetech/karage/internal/domain/catalog"
	"github.com/softguidetech/karage/internal/domain/pos"
)

const unauthorizedMessage = "Invalid or missing API key"

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Version is reported by the health endpoint.
	Version string
	// CacheTTL bounds how long catalog list responses are served from cache.
	CacheTTL time.Duration
}

// Handler serves the versioned API. Authentication runs per request via the
// api_key query parameter (reads) or body field (order submission).
type Handler struct {
	auth     *auth.Authenticator
	uoms     catalog.UoMRepository
	products catalog.ProductRepository
	vendors  catalog.VendorRepository
	orders   *pos.Service

	// responses is optional; nil disables catalog response caching.
	responses cache.Cache
	cacheTTL  time.Duration
	version   string
	now       func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
// responses may be nil.
func NewHandler(
	cfg HandlerConfig,
	authn *auth.Authenticator,
	uoms catalog.UoMRepository,
	products catalog.ProductRepository,
	vendors catalog.VendorRepository,
	orders *pos.Service,
	responses cache.Cache,
) *Handler {
	version := cfg.Version
	if version == "" {
		version = "1.0"
	}
	return &Handler{
		auth:      authn,
		uoms:      uoms,
		products:  products,
		vendors:   vendors,
		orders:    orders,
		responses: responses,
		cacheTTL:  cfg.CacheTTL,
		version:   version,
		now:       time.Now,
	}
}

// Routes returns the router for the /api/v1 subtree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/uom", h.ListUoM)
	r.Get("/products", h.ListProducts)
	r.Get("/vendors", h.ListVendors)
	r.Route("/pos/orders", func(r chi.Router) {
		r.Get("/", h.OrderEndpointInfo)
		r.Post("/", h.CreateOrder)
		r.Options("/", h.OrderPreflight)
	})
	return r
}

// Health reports that the API is up. No authentication, no side effects.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, r, http.StatusOK, struct {
		Message string `json:"message"`
		Version string `json:"version"`
	}{
		Message: "API is running",
		Version: h.version,
	}, "")
}

// authenticate validates the API key and writes the 401 envelope on failure.
// It returns false when the request has been answered.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, key string) bool {
	_, err := h.auth.Authenticate(r.Context(), key)
	if err == nil {
		return true
	}
	if errors.Is(err, auth.ErrUnauthorized) {
		writeEnvelope(w, r, http.StatusUnauthorized, nil, unauthorizedMessage)
		return false
	}
	zctx.From(r.Context()).Error("authenticate", zap.Error(err))
	writeEnvelope(w, r, http.StatusInternalServerError, nil, "Internal server error: "+err.Error())
	return false
}

// serveCachedList answers a catalog list request, consulting the response
// cache first. Cached entries hold the complete envelope body.
func (h *Handler) serveCachedList(
	w http.ResponseWriter, r *http.Request,
	operation, variant string,
	fetch func(ctx context.Context) (any, error),
) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	var key string
	if h.responses != nil {
		key = h.responses.GenerateKey(operation, variant)
		if body, err := h.responses.Get(ctx, key); err == nil && body != "" {
			writeRawEnvelope(w, http.StatusOK, []byte(body))
			return
		} else if err != nil {
			lg.Warn("response cache get", zap.String("key", key), zap.Error(err))
		}
	}

	data, err := fetch(ctx)
	if err != nil {
		lg.Error(operation, zap.Error(err))
		writeEnvelope(w, r, http.StatusInternalServerError, nil, "Internal server error: "+err.Error())
		return
	}

	body, err := encodeEnvelope(http.StatusOK, data, "")
	if err != nil {
		lg.Error("encode response envelope", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if h.responses != nil {
		if err := h.responses.Set(ctx, key, string(body), h.cacheTTL); err != nil {
			lg.Warn("response cache set", zap.String("key", key), zap.Error(err))
		}
	}
	writeRawEnvelope(w, http.StatusOK, body)
}
