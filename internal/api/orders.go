package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/softguidetech/karage/internal/domain/pos"
)

// orderReceipt is the success payload of an order submission.
type orderReceipt struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	PosReference string  `json:"pos_reference"`
	AmountTotal  float64 `json:"amount_total"`
	AmountPaid   float64 `json:"amount_paid"`
	State        string  `json:"state"`
	DateOrder    string  `json:"date_order"`
}

// CreateOrder serves POST /pos/orders. The API key is taken from the request
// body, falling back to the api_key query parameter, and is checked before
// any validation result is reported.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeEnvelope(w, r, http.StatusBadRequest, nil, "Invalid JSON format: "+err.Error())
		return
	}

	key, req, reqErr := parseOrderRequest(body, h.now)
	if key == "" {
		key = r.URL.Query().Get("api_key")
	}
	if !h.authenticate(w, r, key) {
		return
	}
	if reqErr != nil {
		writeEnvelope(w, r, reqErr.status, nil, reqErr.message)
		return
	}

	receipt, err := h.orders.Submit(r.Context(), *req)
	if err != nil {
		status, msg := orderErrorStatus(err)
		if status == http.StatusInternalServerError {
			zctx.From(r.Context()).Error("submit order",
				zap.Int64("session_id", req.SessionID),
				zap.Error(err))
		}
		writeEnvelope(w, r, status, nil, msg)
		return
	}

	writeEnvelope(w, r, http.StatusOK, orderReceipt{
		ID:           receipt.ID,
		Name:         receipt.Name,
		PosReference: receipt.PosReference,
		AmountTotal:  receipt.AmountTotal.InexactFloat64(),
		AmountPaid:   receipt.AmountPaid.InexactFloat64(),
		State:        receipt.State,
		DateOrder:    receipt.DateOrder.Format(dateOrderLayout),
	}, "")
}

// orderErrorStatus maps a submission failure to its HTTP status and message.
func orderErrorStatus(err error) (int, string) {
	var (
		sessionNotFound *pos.SessionNotFoundError
		productNotFound *pos.ProductNotFoundError
		methodNotFound  *pos.PaymentMethodNotFoundError
		sessionNotOpen  *pos.SessionNotOpenError
	)
	switch {
	case errors.As(err, &sessionNotFound),
		errors.As(err, &productNotFound),
		errors.As(err, &methodNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &sessionNotOpen),
		errors.Is(err, pos.ErrNoOrderLines),
		errors.Is(err, pos.ErrNoPaymentLines):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error: " + err.Error()
	}
}

// OrderEndpointInfo serves GET /pos/orders: static metadata describing how to
// submit an order. It requires no authentication.
func (h *Handler) OrderEndpointInfo(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, r, http.StatusOK, struct {
		Endpoint    string   `json:"endpoint"`
		Methods     []string `json:"methods"`
		Description string   `json:"description"`
		Usage       string   `json:"usage"`
	}{
		Endpoint:    "/api/v1/pos/orders",
		Methods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		Description: "Create POS orders with lines and payments",
		Usage:       "POST a JSON body with api_key, session_id, lines and payments",
	}, "")
}

// OrderPreflight answers the CORS preflight for order submission.
func (h *Handler) OrderPreflight(w http.ResponseWriter, r *http.Request) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")
	hdr.Set("Access-Control-Max-Age", "3600")
	w.WriteHeader(http.StatusOK)
}
